package renderer

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"github.com/spaghettifunk/kiln/engine/renderer/vulkan"
)

/** @brief File names of the builtin shaders inside the shader directory. */
const (
	PhongShaderName     = "phong" + assets.ShaderExtension
	ShadowShaderName    = "shadow" + assets.ShaderExtension
	WireframeShaderName = "wireframe" + assets.ShaderExtension
	SkyboxShaderName    = "skybox" + assets.ShaderExtension
)

type Options struct {
	Backend       vulkan.BackendOptions
	ShadowMapSize uint32
	Pcf           metadata.Pcf
	/** @brief Directory holding the builtin shader binaries. */
	ShaderDir string
	/** @brief Changed shader files, nil when hot reload is off. */
	Reloads <-chan assets.ReloadEvent
}

/**
 * @brief The front-end of the renderer. Owns the Vulkan context, every GPU
 * resource behind a handle and the frame bracketing. Every method must be
 * called from the main thread.
 */
type Renderer struct {
	context   *vulkan.VulkanContext
	window    vulkan.Window
	resources *Resources
	builtins  Builtins

	surface *vulkan.VulkanFramebuffer
	forward *ForwardRenderer

	reloads      <-chan assets.ReloadEvent
	shaderLoader loaders.ShaderLoader

	// the cubemap currently bound as skybox
	skybox metadata.Handle
	// bound to the skybox binding while no cubemap is the skybox
	fallbackCube *vulkan.VulkanCubemap

	clock   *core.Clock
	inFrame bool
	frame   Frame
	stats   metadata.Stats
}

func New(window vulkan.Window, opts Options) (*Renderer, error) {
	context, err := vulkan.NewContext(window, opts.Backend)
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		context:   context,
		window:    window,
		resources: NewResources(),
		reloads:   opts.Reloads,
		clock:     core.NewClock(),
	}
	if err := r.initialize(opts); err != nil {
		r.Shutdown()
		return nil, err
	}
	r.clock.Start()
	return r, nil
}

func (r *Renderer) initialize(opts Options) error {
	// the white texture must own slot 0, unwritten table entries fall back to it
	white, err := r.CreateTexture(metadata.ImageData{
		Width:    1,
		Height:   1,
		Channels: 4,
		Pixels:   []uint8{255, 255, 255, 255},
	}, metadata.TextureOptions{Filter: metadata.FilterNearest, Wrap: metadata.WrapRepeat})
	if err != nil {
		return err
	}
	if texture, _ := r.resources.Textures.Get(white); texture.Index != 0 {
		return errors.Newf("white texture landed in image slot %d", texture.Index)
	}
	r.builtins.White = white

	face := metadata.ImageData{Width: 1, Height: 1, Channels: 4, Pixels: []uint8{255, 255, 255, 255}}
	if r.fallbackCube, err = vulkan.CubemapCreate(r.context, metadata.CubemapSides{
		Right: face, Left: face, Top: face, Bottom: face, Front: face, Back: face,
	}); err != nil {
		return err
	}
	r.context.Images.SetFallbackSkybox(r.fallbackCube.Image.View)

	if r.builtins.Cube, err = r.CreateMesh(metadata.Cube()); err != nil {
		return err
	}
	if r.builtins.Material, err = r.CreateMaterial(metadata.DefaultMaterialArgs()); err != nil {
		return err
	}

	shaders := []struct {
		name   string
		handle *metadata.Handle
	}{
		{PhongShaderName, &r.builtins.Phong},
		{ShadowShaderName, &r.builtins.Shadow},
		{WireframeShaderName, &r.builtins.Wireframe},
		{SkyboxShaderName, &r.builtins.Skybox},
	}
	for _, s := range shaders {
		binary, err := r.shaderLoader.Load(filepath.Join(opts.ShaderDir, s.name))
		if err != nil {
			return errors.Wrap(err, "builtin shader")
		}
		if *s.handle, err = r.CreateShader(binary); err != nil {
			return err
		}
	}

	if r.surface, err = vulkan.NewWindowFramebuffers(r.context); err != nil {
		return err
	}
	r.forward, err = NewForwardRenderer(r.context, r.resources, &r.builtins, opts.ShadowMapSize, opts.Pcf)
	return err
}

func (r *Renderer) Builtins() Builtins {
	return r.builtins
}

// Stats returns the counters of the last completed frame.
func (r *Renderer) Stats() metadata.Stats {
	return r.stats
}

func (r *Renderer) InFrame() bool {
	return r.inFrame
}

// BeginFrame waits for the next frame slot and acquires a swapchain image.
// Pending shader reloads, framebuffer rebuilds and image table writes are
// applied here, before anything is recorded. Calling it inside a frame is a
// no-op.
func (r *Renderer) BeginFrame() error {
	if r.inFrame {
		return nil
	}
	r.drainReloads()

	imageIndex, err := r.context.Frames.NextFrame()
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		core.LogDebug("swapchain out of date, resizing")
		width, height := r.window.FramebufferSize()
		if err := r.Resize(uint32(width), uint32(height)); err != nil {
			return err
		}
		imageIndex, err = r.context.Frames.NextFrame()
	}
	if err != nil {
		return err
	}

	slot := r.context.Frames.CurrentIndex()
	if err := r.surface.UpdateIfNeeded(); err != nil {
		return err
	}
	for _, fb := range r.resources.Framebuffers.Snapshot() {
		if err := fb.UpdateIfNeeded(); err != nil {
			return err
		}
	}
	if err := r.context.Images.UpdateIfNeeded(slot); err != nil {
		return err
	}

	r.clock.Update()
	r.frame = Frame{
		Slot:          slot,
		ImageIndex:    imageIndex,
		CommandBuffer: r.context.Frames.Current().CommandBuffer,
		Time:          float32(r.clock.Elapsed()),
	}
	r.forward.ResetStats()
	r.inFrame = true
	return nil
}

// DrawWindow records target into the window framebuffer.
func (r *Renderer) DrawWindow(camera *Camera, target *Target) error {
	if err := r.BeginFrame(); err != nil {
		return err
	}
	return r.forward.Render(r.frame, r.surface, camera, target)
}

// DrawFramebuffer records target into an offscreen framebuffer. Its shader
// visible copy can be sampled by anything drawn later in the frame.
func (r *Renderer) DrawFramebuffer(handle metadata.Handle, camera *Camera, target *Target) error {
	fb, err := r.resources.Framebuffers.Get(handle)
	if err != nil {
		return err
	}
	if err := r.BeginFrame(); err != nil {
		return err
	}
	frame := r.frame
	// offscreen framebuffers have a single native framebuffer
	frame.ImageIndex = 0
	return r.forward.Render(frame, fb, camera, target)
}

// EndFrame submits the recorded frame and presents it.
func (r *Renderer) EndFrame() error {
	if !r.inFrame {
		return nil
	}
	r.inFrame = false
	r.stats = r.forward.Stats()

	if err := r.context.Frames.Submit(); err != nil {
		return err
	}
	err := r.context.Frames.Present()
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		width, height := r.window.FramebufferSize()
		return r.Resize(uint32(width), uint32(height))
	}
	return err
}

// Resize waits for the device to be idle, then recreates the swapchain and
// the window framebuffers.
func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.context.Frames.WaitForIdle(); err != nil {
		return err
	}
	if err := r.context.RecreateSwapchain(width, height); err != nil {
		return err
	}
	r.surface.Resize(width, height)
	return r.surface.UpdateIfNeeded()
}

// drainReloads applies every pending shader reload. A shader that fails to
// load keeps its current pipelines.
func (r *Renderer) drainReloads() {
	if r.reloads == nil {
		return
	}
	renderpasses := r.renderpasses()
	for {
		select {
		case event, ok := <-r.reloads:
			if !ok {
				r.reloads = nil
				return
			}
			if err := r.reloadShader(event, renderpasses); err != nil {
				core.LogError("hot reload of %s failed: %s", event.Path, err)
			}
		default:
			return
		}
	}
}

func (r *Renderer) reloadShader(event assets.ReloadEvent, renderpasses []*vulkan.VulkanRenderpass) error {
	shader, err := r.resources.Shaders.Get(event.Handle)
	if err != nil {
		return err
	}
	binary, err := r.shaderLoader.Load(event.Path)
	if err != nil {
		return err
	}
	release, err := shader.Reload(binary, renderpasses)
	if err != nil {
		return err
	}
	r.context.Frames.Defer(release)
	core.LogInfo("reloaded %s", event.Path)
	return nil
}

// renderpasses lists every render pass a pipeline may have been built for.
func (r *Renderer) renderpasses() []*vulkan.VulkanRenderpass {
	out := []*vulkan.VulkanRenderpass{r.surface.Renderpass, r.forward.ShadowRenderpass()}
	for _, h := range r.resources.Framebuffers.Handles() {
		if fb, err := r.resources.Framebuffers.Get(h); err == nil {
			out = append(out, fb.Renderpass)
		}
	}
	return out
}

func (r *Renderer) CreateTexture(data metadata.ImageData, opts metadata.TextureOptions) (metadata.Handle, error) {
	texture, err := vulkan.TextureCreate(r.context, data, opts)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.resources.Textures.Add(texture), nil
}

// TextureSlot returns the image table slot and sampler index of a texture,
// as used in draw orders and material arguments.
func (r *Renderer) TextureSlot(handle metadata.Handle) (uint32, uint32, error) {
	texture, err := r.resources.Textures.Get(handle)
	if err != nil {
		return 0, 0, err
	}
	return uint32(texture.Index), texture.SamplerIndex, nil
}

// CreateCubemap uploads the faces and makes the cubemap the skybox.
func (r *Renderer) CreateCubemap(sides metadata.CubemapSides) (metadata.Handle, error) {
	cubemap, err := vulkan.CubemapCreate(r.context, sides)
	if err != nil {
		return metadata.Handle{}, err
	}
	handle := r.resources.Cubemaps.Add(cubemap)
	r.context.Images.SetSkybox(cubemap.Image.View)
	r.skybox = handle
	return handle, nil
}

func (r *Renderer) CreateMesh(data metadata.MeshData) (metadata.Handle, error) {
	mesh, err := vulkan.MeshCreate(r.context, data)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.resources.Meshes.Add(mesh), nil
}

func (r *Renderer) CreateMaterial(args metadata.MaterialArgs) (metadata.Handle, error) {
	material, err := vulkan.MaterialCreate(r.context, args)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.resources.Materials.Add(material), nil
}

// UpdateMaterial replaces the arguments of a material. They reach each frame
// slot the next time it binds the material.
func (r *Renderer) UpdateMaterial(handle metadata.Handle, args metadata.MaterialArgs) error {
	material, err := r.resources.Materials.Get(handle)
	if err != nil {
		return err
	}
	material.Args.Update(args)
	return nil
}

func (r *Renderer) CreateShader(binary *metadata.ShaderBinary) (metadata.Handle, error) {
	shader, err := vulkan.ShaderCreate(r.context, binary)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.resources.Shaders.Add(shader), nil
}

// LoadShader creates a shader from a binary file.
func (r *Renderer) LoadShader(path string) (metadata.Handle, error) {
	binary, err := r.shaderLoader.Load(path)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.CreateShader(binary)
}

func (r *Renderer) CreateFramebuffer(width, height uint32) (metadata.Handle, error) {
	fb, err := vulkan.NewFramebuffer(r.context, width, height)
	if err != nil {
		return metadata.Handle{}, err
	}
	return r.resources.Framebuffers.Add(fb), nil
}

// FramebufferSlot returns the image table slot of the framebuffer's shader
// visible copy.
func (r *Renderer) FramebufferSlot(handle metadata.Handle) (uint32, error) {
	fb, err := r.resources.Framebuffers.Get(handle)
	if err != nil {
		return 0, err
	}
	return uint32(fb.ShaderIndex), nil
}

// ResizeFramebuffer rebuilds an offscreen framebuffer at the start of the
// next frame. Its image table slot is kept.
func (r *Renderer) ResizeFramebuffer(handle metadata.Handle, width, height uint32) error {
	fb, err := r.resources.Framebuffers.Get(handle)
	if err != nil {
		return err
	}
	fb.Resize(width, height)
	return nil
}

// The Destroy methods drop the resource from the image table at once and
// free it once no frame in flight can still use it.

func (r *Renderer) DestroyTexture(handle metadata.Handle) error {
	if handle == r.builtins.White {
		return errors.Wrap(core.ErrInvalidHandle, "the white texture is builtin")
	}
	texture, err := r.resources.Textures.Remove(handle)
	if err != nil {
		return err
	}
	texture.Release(r.context)
	return nil
}

func (r *Renderer) DestroyCubemap(handle metadata.Handle) error {
	cubemap, err := r.resources.Cubemaps.Remove(handle)
	if err != nil {
		return err
	}
	if handle == r.skybox {
		// later sets bind the fallback cube instead
		r.context.Images.SetSkybox(nil)
		r.skybox = metadata.Handle{}
	}
	r.context.Images.Retire(-1, func() { cubemap.Destroy(r.context) })
	return nil
}

func (r *Renderer) DestroyMesh(handle metadata.Handle) error {
	mesh, err := r.resources.Meshes.Remove(handle)
	if err != nil {
		return err
	}
	r.context.Frames.Defer(func() { mesh.Destroy(r.context) })
	return nil
}

func (r *Renderer) DestroyMaterial(handle metadata.Handle) error {
	material, err := r.resources.Materials.Remove(handle)
	if err != nil {
		return err
	}
	r.context.Frames.Defer(material.Destroy)
	return nil
}

func (r *Renderer) DestroyShader(handle metadata.Handle) error {
	shader, err := r.resources.Shaders.Remove(handle)
	if err != nil {
		return err
	}
	r.context.Frames.Defer(shader.Destroy)
	return nil
}

func (r *Renderer) DestroyFramebuffer(handle metadata.Handle) error {
	fb, err := r.resources.Framebuffers.Remove(handle)
	if err != nil {
		return err
	}
	fb.Release()
	return nil
}

// Shutdown waits for the GPU and destroys everything, dependents first.
func (r *Renderer) Shutdown() {
	if r.context == nil {
		return
	}
	if r.context.Frames != nil {
		if err := r.context.Frames.WaitForIdle(); err != nil {
			core.LogWarn("renderer shutdown: %s", err)
		}
	}
	if r.forward != nil {
		r.forward.Destroy()
		r.forward = nil
	}
	if r.surface != nil {
		r.surface.Destroy()
		r.surface = nil
	}
	for _, fb := range r.resources.Framebuffers.Drain() {
		fb.Destroy()
	}
	for _, shader := range r.resources.Shaders.Drain() {
		shader.Destroy()
	}
	for _, material := range r.resources.Materials.Drain() {
		material.Destroy()
	}
	for _, mesh := range r.resources.Meshes.Drain() {
		mesh.Destroy(r.context)
	}
	for _, cubemap := range r.resources.Cubemaps.Drain() {
		cubemap.Destroy(r.context)
	}
	for _, texture := range r.resources.Textures.Drain() {
		texture.Destroy(r.context)
	}
	if r.fallbackCube != nil {
		r.fallbackCube.Destroy(r.context)
		r.fallbackCube = nil
	}
	r.context.Shutdown()
	r.context = nil
	core.LogInfo("renderer shut down")
}
