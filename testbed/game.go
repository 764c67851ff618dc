package testbed

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine"
	"github.com/spaghettifunk/kiln/engine/core"
	kmath "github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

const (
	cameraSpeed    float32 = 5.0
	cameraTurnRate float32 = 1.5
	// size of the offscreen view drawn onto the monitor quad
	monitorSize uint32 = 512
	statsPeriod        = 2.0
)

type TestGame struct {
	*engine.Game
}

type cube struct {
	transform *kmath.Transform
	tint      mgl32.Vec3
	spin      float32
}

type gameState struct {
	camera        *renderer.Camera
	monitorCamera *renderer.Camera

	cubes   []cube
	floor   *kmath.Transform
	monitor *kmath.Transform

	assetDir string
	model    metadata.Handle
	hasModel bool
	phong    metadata.Handle

	checker     metadata.Handle
	checkerSlot uint32
	sampler     uint32

	framebuffer     metadata.Handle
	framebufferSlot uint32
	monitorMesh     metadata.Handle

	skybox    metadata.Handle
	hasSkybox bool
	wireframe bool

	statsTimer float64
}

func NewTestGame(configPath, assetDir string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:       "Kiln Testbed",
				ConfigPath: configPath,
			},
			State: &gameState{assetDir: assetDir},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.Engine == nil {
		return errors.New("the engine is not yet initialized")
	}
	state := g.state()

	state.camera = renderer.NewCamera()
	state.camera.SetPosition(mgl32.Vec3{0, 3, 10})
	state.camera.SetEulerRotation(mgl32.Vec3{-0.25, 0, 0})

	state.monitorCamera = renderer.NewCamera()
	state.monitorCamera.SetPosition(mgl32.Vec3{8, 6, 8})
	state.monitorCamera.SetEulerRotation(mgl32.Vec3{-0.5, mgl32.DegToRad(45), 0})

	state.phong = g.Engine.Builtins().Phong

	for i := 0; i < 5; i++ {
		position := mgl32.Vec3{float32(i-2) * 2.5, 1, 0}
		state.cubes = append(state.cubes, cube{
			transform: kmath.TransformFromPosition(position),
			tint:      mgl32.Vec3{0.4 + 0.15*float32(i), 0.8 - 0.1*float32(i), 0.6},
			spin:      0.3 * float32(i+1),
		})
	}
	state.floor = kmath.TransformFromPositionRotationScale(mgl32.Vec3{0, -0.5, 0}, mgl32.QuatIdent(), mgl32.Vec3{30, 0.2, 30})
	state.monitor = kmath.TransformFromPositionRotationScale(mgl32.Vec3{0, 4, -6}, mgl32.QuatIdent(), mgl32.Vec3{4, 4, 1})

	checker, err := g.Engine.CreateTexture(checkerboard(64, 8), metadata.TextureOptions{
		Filter:  metadata.FilterNearest,
		Wrap:    metadata.WrapRepeat,
		Mipmaps: true,
	})
	if err != nil {
		return err
	}
	state.checker = checker
	if state.checkerSlot, state.sampler, err = g.Engine.TextureSlot(checker); err != nil {
		return err
	}

	if state.framebuffer, err = g.Engine.CreateFramebuffer(monitorSize, monitorSize); err != nil {
		return err
	}
	if state.framebufferSlot, err = g.Engine.FramebufferSlot(state.framebuffer); err != nil {
		return err
	}
	quad := metadata.Rectangle(
		mgl32.Vec3{-0.5, -0.5, 0},
		mgl32.Vec3{0.5, -0.5, 0},
		mgl32.Vec3{0.5, 0.5, 0},
		mgl32.Vec3{-0.5, 0.5, 0},
	)
	if state.monitorMesh, err = g.Engine.CreateMesh(quad); err != nil {
		return err
	}

	g.loadOptionalAssets()
	g.Engine.Events().Register(core.EVENT_CODE_KEY_PRESSED, g, g.onKey)
	return nil
}

// loadOptionalAssets picks up a skybox, a model and a custom shader from the
// asset directory. Missing or broken files only get logged.
func (g *TestGame) loadOptionalAssets() {
	state := g.state()
	if state.assetDir == "" {
		return
	}

	faces := [6]string{}
	for i, name := range []string{"right", "left", "top", "bottom", "front", "back"} {
		faces[i] = filepath.Join(state.assetDir, "skybox", name+".png")
	}
	if _, err := os.Stat(faces[0]); err == nil {
		if skybox, err := g.Engine.LoadCubemap(faces); err != nil {
			core.LogWarn("skybox not loaded: %s", err)
		} else {
			state.skybox, state.hasSkybox = skybox, true
		}
	}

	modelPath := filepath.Join(state.assetDir, "models", "model.obj")
	if _, err := os.Stat(modelPath); err == nil {
		if model, err := g.Engine.LoadModel(modelPath); err != nil {
			core.LogWarn("model not loaded: %s", err)
		} else {
			state.model, state.hasModel = model, true
		}
	}

	shaderPath := filepath.Join(state.assetDir, "shaders", "custom.ksh")
	if _, err := os.Stat(shaderPath); err == nil {
		if shader, err := g.Engine.CreateShaderFromFile(shaderPath, true); err != nil {
			core.LogWarn("custom shader not loaded, keeping phong: %s", err)
		} else {
			state.phong = shader
		}
	}
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	dt := float32(deltaTime)

	for _, c := range state.cubes {
		c.transform.Rotate(mgl32.QuatRotate(c.spin*dt, mgl32.Vec3{0, 1, 0}))
	}

	cam := state.camera
	if g.Engine.IsKeyDown(platform.KeyW) {
		cam.MoveForward(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyS) {
		cam.MoveBackward(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyA) {
		cam.MoveLeft(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyD) {
		cam.MoveRight(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyQ) {
		cam.MoveDown(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyE) {
		cam.MoveUp(cameraSpeed * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyLeft) {
		cam.Yaw(cameraTurnRate * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyRight) {
		cam.Yaw(-cameraTurnRate * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyUp) {
		cam.Pitch(cameraTurnRate * dt)
	}
	if g.Engine.IsKeyDown(platform.KeyDown) {
		cam.Pitch(-cameraTurnRate * dt)
	}

	state.statsTimer += deltaTime
	if state.statsTimer >= statsPeriod {
		state.statsTimer = 0
		s := g.Engine.Stats()
		core.LogDebug("fps %.1f | cpu %.2fms | draws %d | indices %d | shaders %d (+%d) | materials %d (+%d)",
			s.Fps, s.CpuTime, s.DrawCalls, s.DrawnIndices, s.ShadersUsed, s.ShaderRebinds, s.MaterialsUsed, s.MaterialRebinds)
	}
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	state := g.state()

	// offscreen first, the window draw ends the frame
	if err := g.Engine.Draw(state.framebuffer, state.monitorCamera, func(t *renderer.Target) {
		t.ClearColor = mgl32.Vec4{0.05, 0.05, 0.1, 1}
		g.drawScene(t)
	}); err != nil {
		return err
	}

	return g.Engine.DrawOnWindow(state.camera, func(t *renderer.Target) {
		t.ClearColor = mgl32.Vec4{0.2, 0.25, 0.3, 1}
		t.Skybox = state.hasSkybox
		g.drawScene(t)
		t.Draw(renderer.Order{
			Shader:       state.phong,
			Material:     g.Engine.Builtins().Material,
			Mesh:         state.monitorMesh,
			Model:        state.monitor.GetWorld(),
			Tint:         mgl32.Vec3{1, 1, 1},
			AlbedoIndex:  state.framebufferSlot,
			SamplerIndex: metadata.SamplerIndex(metadata.FilterLinear, metadata.WrapClampEdge, false),
		})
	})
}

func (g *TestGame) drawScene(t *renderer.Target) {
	state := g.state()
	builtins := g.Engine.Builtins()

	t.AddLight(metadata.MainLight(mgl32.Vec3{-0.4, -1, -0.3}, mgl32.Vec4{1, 0.95, 0.9, 1}, 1))
	t.AddLight(metadata.PointLight(mgl32.Vec3{0, 3, 3}, mgl32.Vec4{0.3, 0.5, 1, 1}, 4))

	t.Draw(renderer.Order{
		Shader:       state.phong,
		Material:     builtins.Material,
		Mesh:         builtins.Cube,
		Model:        state.floor.GetWorld(),
		Tint:         mgl32.Vec3{0.8, 0.8, 0.8},
		AlbedoIndex:  state.checkerSlot,
		SamplerIndex: state.sampler,
		Shadows:      true,
	})
	for _, c := range state.cubes {
		t.Draw(renderer.Order{
			Shader:    state.phong,
			Material:  builtins.Material,
			Mesh:      builtins.Cube,
			Model:     c.transform.GetWorld(),
			Tint:      c.tint,
			Shadows:   true,
			Wireframe: state.wireframe,
		})
	}
	if state.hasModel {
		t.DrawMesh(state.model, state.phong, builtins.Material, mgl32.Translate3D(0, 0, 4))
	}
}

func (g *TestGame) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if context.Key == platform.KeyP {
		state := g.state()
		state.wireframe = !state.wireframe
		return true
	}
	return false
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	var errs error
	if state.hasSkybox {
		errs = errors.CombineErrors(errs, g.Engine.DestroyCubemap(state.skybox))
	}
	if state.hasModel {
		errs = errors.CombineErrors(errs, g.Engine.DestroyMesh(state.model))
	}
	if state.phong != g.Engine.Builtins().Phong {
		errs = errors.CombineErrors(errs, g.Engine.DestroyShader(state.phong))
	}
	errs = errors.CombineErrors(errs, g.Engine.DestroyMesh(state.monitorMesh))
	errs = errors.CombineErrors(errs, g.Engine.DestroyFramebuffer(state.framebuffer))
	errs = errors.CombineErrors(errs, g.Engine.DestroyTexture(state.checker))
	return errs
}

// checkerboard builds a two tone RGBA texture.
func checkerboard(size, cells uint32) metadata.ImageData {
	pixels := make([]uint8, 0, size*size*4)
	cell := size / cells
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			v := uint8(90)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return metadata.ImageData{Width: size, Height: size, Channels: 4, Pixels: pixels, Srgb: true}
}
