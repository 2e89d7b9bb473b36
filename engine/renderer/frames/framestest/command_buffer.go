package framestest

import (
	"fmt"

	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

type CommandBufferState int

const (
	StateReady CommandBufferState = iota
	StateRecording
	StateInRenderPass
	StateRecordingEnded
	StateSubmitted
)

func (s CommandBufferState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRecording:
		return "recording"
	case StateInRenderPass:
		return "in_render_pass"
	case StateRecordingEnded:
		return "recording_ended"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// CommandBuffer records the commands it is given instead of encoding them.
type CommandBuffer struct {
	Image    int
	Recorded []metadata.Command
	state    CommandBufferState
	// FailEnd makes End report an error.
	FailEnd bool
}

func NewCommandBuffer(image int) *CommandBuffer {
	return &CommandBuffer{Image: image}
}

// Record fills the buffer with the triangle program on a black background.
func (c *CommandBuffer) Record() {
	c.Begin()
	c.BeginRenderPass(metadata.ClearColor{A: 1})
	c.BindPipeline()
	c.Draw(metadata.TriangleVertexCount, 1, 0, 0)
	c.EndRenderPass()
	c.End()
}

func (c *CommandBuffer) State() CommandBufferState {
	return c.state
}

func (c *CommandBuffer) Begin() error {
	if c.state != StateReady {
		return fmt.Errorf("begin on command buffer %d in state %s", c.Image, c.state)
	}
	c.Recorded = c.Recorded[:0]
	c.state = StateRecording
	return nil
}

func (c *CommandBuffer) BeginRenderPass(clear metadata.ClearColor) {
	c.Recorded = append(c.Recorded, metadata.Command{Op: metadata.CommandBeginRenderPass, Clear: clear})
	c.state = StateInRenderPass
}

func (c *CommandBuffer) BindPipeline() {
	c.Recorded = append(c.Recorded, metadata.Command{Op: metadata.CommandBindPipeline})
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.Recorded = append(c.Recorded, metadata.Command{
		Op:            metadata.CommandDraw,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

func (c *CommandBuffer) EndRenderPass() {
	c.Recorded = append(c.Recorded, metadata.Command{Op: metadata.CommandEndRenderPass})
	c.state = StateRecording
}

func (c *CommandBuffer) End() error {
	if c.FailEnd {
		return fmt.Errorf("simulated end failure on command buffer %d", c.Image)
	}
	if c.state != StateRecording {
		return fmt.Errorf("end on command buffer %d in state %s", c.Image, c.state)
	}
	c.state = StateRecordingEnded
	return nil
}

// Executable holds for recorded buffers, including ones already submitted
// since they are reused every time their image comes round.
func (c *CommandBuffer) Executable() bool {
	return c.state == StateRecordingEnded || c.state == StateSubmitted
}

func (c *CommandBuffer) MarkSubmitted() {
	c.state = StateSubmitted
}
