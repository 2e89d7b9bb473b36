package renderer

import (
	"context"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

// How often the frame statistics are written to the log.
const metricsReportInterval = 5 * time.Second

type Renderer struct {
	backend RendererBackend
	config  metadata.RendererBackendConfig
	sync    *frames.Synchronizer

	clock       *core.Clock
	metrics     *core.Metrics
	sinceReport time.Duration
}

func New(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
		clock:   core.NewClock(),
		metrics: core.NewMetrics(),
	}
}

// Initialize brings up the backend, records the triangle program for every
// presentable image and creates the frame synchronization objects.
func (r *Renderer) Initialize(config metadata.RendererBackendConfig) error {
	r.config = config
	if err := r.backend.Initialize(config); err != nil {
		return err
	}

	buffers := r.backend.CommandBuffers()
	if err := RecordDrawCommands(buffers, metadata.TriangleProgram(config.ClearColor)); err != nil {
		return err
	}

	commands := make([]frames.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		commands[i] = cb
	}
	sync, err := frames.New(r.backend.Device(), commands, frames.Config{
		FramesInFlight: config.FramesInFlight,
		Timeout:        config.FenceTimeout,
	})
	if err != nil {
		return err
	}
	r.sync = sync

	core.LogInfo("Renderer initialized with %d frame(s) in flight.", sync.FramesInFlight())
	return nil
}

// Run draws frames until window closes, ctx is cancelled or a frame fails.
func (r *Renderer) Run(ctx context.Context, window frames.Window) error {
	r.clock.Start()
	return r.sync.Run(ctx, window, r.onFrame)
}

func (r *Renderer) onFrame(info frames.FrameInfo) {
	r.clock.Update()
	elapsed := r.clock.Elapsed()
	r.clock.Start()

	r.metrics.Update(elapsed)
	r.sinceReport += elapsed
	if r.sinceReport >= metricsReportInterval {
		r.sinceReport = 0
		core.LogDebug("frame %d: %.1f fps, %s avg frame time", info.Number, r.metrics.FPS(), r.metrics.FrameTime())
	}
}

func (r *Renderer) Metrics() *core.Metrics {
	return r.metrics
}

// Shutdown drains the device, then releases the synchronization objects and
// the backend in reverse creation order. Release failures are logged only.
func (r *Renderer) Shutdown() error {
	if r.sync != nil {
		if err := r.backend.Device().WaitIdle(); err != nil {
			core.LogError("failed to wait for device idle before shutdown: %s", err)
		}
		r.sync.Destroy()
		r.sync = nil
	}
	return r.backend.Shutdown()
}
