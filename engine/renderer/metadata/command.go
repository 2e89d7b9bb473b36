package metadata

type CommandOp uint8

const (
	CommandBeginRenderPass CommandOp = iota
	CommandBindPipeline
	CommandDraw
	CommandEndRenderPass
)

func (op CommandOp) String() string {
	switch op {
	case CommandBeginRenderPass:
		return "begin_render_pass"
	case CommandBindPipeline:
		return "bind_pipeline"
	case CommandDraw:
		return "draw"
	case CommandEndRenderPass:
		return "end_render_pass"
	default:
		return "unknown"
	}
}

type ClearColor struct {
	R, G, B, A float32
}

// Command is one entry of a pre-recorded draw program.
type Command struct {
	Op CommandOp
	// Used by CommandBeginRenderPass.
	Clear ClearColor
	// Used by CommandDraw.
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// The triangle positions live in the vertex stage, no vertex buffer is bound.
const TriangleVertexCount uint32 = 3

// TriangleProgram is the fixed sequence recorded for every presentable image.
func TriangleProgram(clear ClearColor) []Command {
	return []Command{
		{Op: CommandBeginRenderPass, Clear: clear},
		{Op: CommandBindPipeline},
		{Op: CommandDraw, VertexCount: TriangleVertexCount, InstanceCount: 1},
		{Op: CommandEndRenderPass},
	}
}
