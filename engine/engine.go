package engine

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/vkplayground/engine/assets"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/platform"
	"github.com/spaghettifunk/vkplayground/engine/renderer"
	"github.com/spaghettifunk/vkplayground/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer

	// Subsystems in start order.
	teardown *core.Teardown
}

func New(config *ApplicationConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	events := core.NewEventBus()

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		events:       events,
		platform:     platform.New(events),
		assetManager: am,
		teardown:     core.NewTeardown(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Initialize opens the window, loads the shader binaries and brings up the
// renderer. On failure whatever was started is stopped by Shutdown.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.SetLogLevel(e.config.LogLevel); err != nil {
		return err
	}

	// register some events
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.teardown.Push("event bus", func() error {
		e.events.Shutdown()
		return nil
	})

	w := e.config.Window
	if err := e.platform.Startup(e.config.Name, w.StartPosX, w.StartPosY, w.StartWidth, w.StartHeight); err != nil {
		return err
	}
	e.teardown.Push("platform", e.platform.Shutdown)

	if err := e.assetManager.Initialize(e.config.AssetsDir); err != nil {
		return err
	}
	e.teardown.Push("asset manager", e.assetManager.Shutdown)

	shaders, err := e.assetManager.LoadShaderSet(e.config.Renderer.VertexShader, e.config.Renderer.FragmentShader)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInitialization, err)
	}

	backendConfig, err := e.config.RendererBackendConfig(shaders)
	if err != nil {
		return err
	}

	e.renderer = renderer.New(vulkan.New(e.platform))
	e.teardown.Push("renderer", e.renderer.Shutdown)
	if err := e.renderer.Initialize(backendConfig); err != nil {
		return err
	}

	// The pipeline owns its own copy of the bytecode.
	e.assetManager.UnloadAsset(shaders.Vertex)
	e.assetManager.UnloadAsset(shaders.Fragment)

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Run presents frames until the window is closed, ctx is cancelled or a
// frame fails. The device is idle when Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run from stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning

	err := e.renderer.Run(ctx, e.platform)
	if err != nil {
		core.LogError("Frame loop stopped: %s", err)
	} else {
		core.LogInfo("Frame loop stopped.")
	}
	m := e.renderer.Metrics()
	core.LogInfo("Average frame time %s (%.1f fps).", m.FrameTime(), m.FPS())
	return err
}

// Shutdown stops every subsystem that was started, newest first.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	failed := e.teardown.Release()
	e.currentStage = EngineStageShutdown
	if failed > 0 {
		return fmt.Errorf("%d subsystem(s) failed to shut down", failed)
	}
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.platform.RequestClose()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if core.KeyCode(data.U16[0]) == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	return false
}
