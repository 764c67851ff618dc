package engine

/**
 * @brief The hooks a game plugs into the engine. Engine is set by New so the
 * hooks can create resources and draw.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	Engine            *Engine
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render records the frame, usually through Engine.Draw and
// Engine.DrawOnWindow.
type Render func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
