package engine

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spaghettifunk/simplegfx/engine/assets"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/platform"
	"github.com/spaghettifunk/simplegfx/engine/renderer/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/systems"
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
)

// Seconds between two frame metric log lines.
const metricsInterval = 5.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	context      *vulkan.VulkanContext
	renderer     *vulkan.Renderer
	assetManager *assets.AssetManager
	jobSystem    *systems.JobSystem
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
	lastReport   float64
}

func New(g *Game) (*Engine, error) {
	if err := core.SetLogLevel(g.ApplicationConfig.LogLevel); err != nil {
		return nil, err
	}

	js, err := systems.NewJobSystem(runtime.NumCPU(), 64)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: assets.NewAssetManager(g.ApplicationConfig.AssetsDir, js),
		jobSystem:    js,
		isRunning:    true,
		isSuspended:  false,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	if err := core.InputInitialize(); err != nil {
		return err
	}

	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e.onAssetChanged)

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
		return err
	}

	vc, err := vulkan.NewVulkanContext(vulkan.ContextConfig{
		ApplicationName: config.Name,
		Validation:      config.Validation,
	}, e.platform)
	if err != nil {
		return fmt.Errorf("creating vulkan context: %w", err)
	}
	e.context = vc

	r, err := vulkan.NewRenderer(vc, e.platform, e.assetManager, config.Renderer)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	e.renderer = r
	e.gameInstance.Renderer = r

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}

	width, height := e.platform.FramebufferSize()
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		return err
	}

	if config.HotReload {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("hot reload disabled: %s", err)
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			// Minimised: nothing to present until the window comes back.
			e.platform.WaitEvents()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return err
		}

		if err := e.gameInstance.FnRender(delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			return err
		}

		if err := e.renderer.DrawFrame(currentTime); err != nil {
			core.LogError("Frame failed, shutting down: %s", err)
			return err
		}

		e.metrics.Update(e.platform.GetAbsoluteTime() - frameStartTime)
		if currentTime-e.lastReport >= metricsInterval {
			fps, frameMS := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.3f ms/frame", fps, frameMS)
			e.lastReport = currentTime
		}

		if err := core.InputUpdate(); err != nil {
			core.LogError(err.Error())
		}
		e.assetManager.PollChanges()

		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error

	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		core.LogInfo("Rendered %d frames, %d swapchain rebuilds.", e.renderer.Stats().Frames, e.renderer.Stats().Rebuilds)
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	errs = append(errs, e.assetManager.Shutdown(), e.jobSystem.Shutdown())
	errs = append(errs, core.EventSystemShutdown(), core.InputShutdown())
	errs = append(errs, e.platform.Shutdown())
	return errors.Join(errs...)
}

func (e *Engine) onEvent(context core.EventContext) {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onResized(context core.EventContext) {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		return
	}
	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.Resized()
	}
	if err := e.gameInstance.FnOnResize(re.Width, re.Height); err != nil {
		core.LogError("game resize handler: %s", err)
	}
}

func (e *Engine) onAssetChanged(context core.EventContext) {
	ae, ok := context.Data.(*core.AssetChangedEvent)
	if !ok || e.renderer == nil {
		return
	}
	n, err := e.renderer.ReloadTexturesWhere(func(path string) bool {
		return e.assetManager.Resolve(path) == ae.Path
	})
	if err != nil {
		core.LogError("reloading %s: %s", ae.Path, err)
		return
	}
	if n > 0 {
		core.LogInfo("Reloaded %s into %d texture slot(s).", ae.Path, n)
	}
}
