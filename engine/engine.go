package engine

import (
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/config"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"github.com/spaghettifunk/kiln/engine/renderer/vulkan"
	"github.com/spaghettifunk/kiln/engine/systems"
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
	// Engine released everything
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	settings     config.QualitySettings

	isRunning   atomic.Bool
	isSuspended bool

	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	jobs         *systems.JobSystem

	textureLoader loaders.TextureLoader
	modelLoader   loaders.ModelLoader

	width         uint32
	height        uint32
	resizePending bool

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	cfg, err := g.ApplicationConfig.load()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	events := core.NewEventBus()
	e := &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        cfg,
		settings:      settings,
		events:        events,
		platform:      platform.New(events),
		textureLoader: loaders.TextureLoader{Srgb: true},
		width:         cfg.Window.Width,
		height:        cfg.Window.Height,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
	}
	g.Engine = e
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	window := e.config.Window
	if err := e.platform.Startup(window.Title, window.X, window.Y, window.Width, window.Height); err != nil {
		return err
	}

	am, err := assets.NewAssetManager(e.config.Assets.Watch)
	if err != nil {
		return err
	}
	e.assetManager = am

	var reloads <-chan assets.ReloadEvent
	if e.config.Assets.Watch {
		reloads = am.Reloads()
	}
	r, err := renderer.New(e.platform, renderer.Options{
		Backend: vulkan.BackendOptions{
			AppName:    window.Title,
			Validation: e.config.Renderer.Validation,
			Vsync:      e.config.Renderer.Vsync,
			Msaa:       e.settings.Msaa,
			Anisotropy: e.settings.Anisotropy,
		},
		ShadowMapSize: e.settings.ShadowMapSize,
		Pcf:           e.settings.Pcf,
		ShaderDir:     e.config.Assets.ShaderDir,
		Reloads:       reloads,
	})
	if err != nil {
		return err
	}
	e.renderer = r

	if e.jobs, err = systems.NewJobSystem(runtime.NumCPU()); err != nil {
		return err
	}

	// the framebuffer may differ from the requested window size on HiDPI screens
	width, height := e.platform.FramebufferSize()
	e.width, e.height = uint32(width), uint32(height)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized")
	return nil
}

// Run is the application loop. It returns when the window closes, Stop is
// called or a frame fails.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.resizePending {
			if err := e.applyResize(); err != nil {
				return err
			}
		}
		if e.isSuspended {
			e.platform.WaitWhileMinimized()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(delta); err != nil {
				core.LogError("game render failed, shutting down: %s", err)
				return err
			}
		}
		// a frame only drawn offscreen still has to be submitted
		if e.renderer.InFrame() {
			if err := e.renderer.EndFrame(); err != nil {
				core.LogError("frame submission failed: %s", err)
				return err
			}
		}

		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		e.lastTime = currentTime
	}
	return nil
}

// Stop asks the loop to exit after the current frame. Safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown waits for the GPU, destroys every resource and closes the window.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs error
	if e.gameInstance.FnShutdown != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if e.assetManager != nil {
		errs = errors.CombineErrors(errs, e.assetManager.Close())
		e.assetManager = nil
	}
	if e.jobs != nil {
		e.jobs.Shutdown()
		e.jobs = nil
	}
	e.events.Shutdown()
	errs = errors.CombineErrors(errs, e.platform.Shutdown())
	e.currentStage = EngineStageShutdown
	return errs
}

// DrawOnWindow builds a target with fn, renders it into the window and
// presents the frame.
func (e *Engine) DrawOnWindow(camera *renderer.Camera, fn func(*renderer.Target)) error {
	target := renderer.NewTarget()
	fn(target)
	if err := e.renderer.DrawWindow(camera, target); err != nil {
		return err
	}
	return e.renderer.EndFrame()
}

// Draw renders into an offscreen framebuffer as part of the current frame.
// Offscreen draws must come before DrawOnWindow, which ends the frame.
func (e *Engine) Draw(framebuffer metadata.Handle, camera *renderer.Camera, fn func(*renderer.Target)) error {
	target := renderer.NewTarget()
	fn(target)
	return e.renderer.DrawFramebuffer(framebuffer, camera, target)
}

// Resize recreates the swapchain and the window framebuffers.
func (e *Engine) Resize(width, height uint32) error {
	e.width, e.height = width, height
	e.resizePending = true
	return e.applyResize()
}

func (e *Engine) applyResize() error {
	e.resizePending = false
	if e.width == 0 || e.height == 0 {
		e.isSuspended = true
		return nil
	}
	e.isSuspended = false
	if err := e.renderer.Resize(e.width, e.height); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(e.width, e.height)
	}
	return nil
}

// Stats returns the counters of the last frame with the CPU timings.
func (e *Engine) Stats() metadata.Stats {
	stats := e.renderer.Stats()
	stats.Fps, stats.CpuTime = e.metrics.Frame()
	return stats
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) IsKeyDown(key int) bool {
	return e.platform.IsKeyDown(key)
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if context.Key == platform.KeyEscape {
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if context.Width != e.width || context.Height != e.height {
		core.LogDebug("window resize: %d, %d", context.Width, context.Height)
		e.width, e.height = context.Width, context.Height
		e.resizePending = true
	}
	return false
}
