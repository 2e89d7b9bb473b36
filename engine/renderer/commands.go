package renderer

import (
	"fmt"

	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

// RecordDrawCommands records program once into every buffer. The buffers
// are then replayed unchanged whenever their image comes round.
func RecordDrawCommands(buffers []CommandBuffer, program []metadata.Command) error {
	for i, cb := range buffers {
		if err := cb.Begin(); err != nil {
			return fmt.Errorf("begin command buffer %d: %w: %w", i, core.ErrCommandRecording, err)
		}
		for _, cmd := range program {
			switch cmd.Op {
			case metadata.CommandBeginRenderPass:
				cb.BeginRenderPass(cmd.Clear)
			case metadata.CommandBindPipeline:
				cb.BindPipeline()
			case metadata.CommandDraw:
				cb.Draw(cmd.VertexCount, cmd.InstanceCount, cmd.FirstVertex, cmd.FirstInstance)
			case metadata.CommandEndRenderPass:
				cb.EndRenderPass()
			default:
				return fmt.Errorf("command buffer %d: unknown command %s: %w", i, cmd.Op, core.ErrCommandRecording)
			}
		}
		if err := cb.End(); err != nil {
			return fmt.Errorf("end command buffer %d: %w: %w", i, core.ErrCommandRecording, err)
		}
	}
	core.LogDebug("Recorded %d command(s) into %d command buffer(s).", len(program), len(buffers))
	return nil
}
