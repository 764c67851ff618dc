package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine/core"
	kmath "github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"github.com/spaghettifunk/kiln/engine/renderer/vulkan"
)

/** @brief The pass a ForwardRenderer is recording. */
type PassState int

const (
	PassIdle PassState = iota
	PassShadow
	PassColor
	PassWireframe
)

func (p PassState) String() string {
	switch p {
	case PassShadow:
		return "shadow"
	case PassColor:
		return "color"
	case PassWireframe:
		return "wireframe"
	}
	return "idle"
}

// canEnter reports whether a renderer in state p may move to next.
func (p PassState) canEnter(next PassState) bool {
	switch p {
	case PassIdle:
		return next == PassShadow || next == PassColor
	case PassShadow:
		return next == PassColor
	case PassColor:
		return next == PassWireframe || next == PassIdle
	case PassWireframe:
		return next == PassIdle
	}
	return false
}

/** @brief What the renderer needs to know about the frame being recorded. */
type Frame struct {
	Slot          int
	ImageIndex    uint32
	CommandBuffer *vulkan.VulkanCommandBuffer
	/** @brief Seconds since the engine started. */
	Time float32
}

// resolvedTarget holds the GPU objects behind every handle of a target.
type resolvedTarget struct {
	meshes    []*vulkan.VulkanMesh
	shaders   map[metadata.Handle]*vulkan.VulkanShader
	materials map[metadata.Handle]*vulkan.VulkanMaterial
}

/**
 * @brief Records the shadow, color and wireframe passes of a Target into a
 * framebuffer.
 */
type ForwardRenderer struct {
	context   *vulkan.VulkanContext
	resources *Resources
	builtins  *Builtins
	pcf       metadata.Pcf

	// the depth map of the main light, one per frame slot
	shadows [vulkan.FramesInFlight]*vulkan.VulkanFramebuffer

	state PassState
	stats metadata.Stats
}

func NewForwardRenderer(context *vulkan.VulkanContext, resources *Resources, builtins *Builtins, shadowMapSize uint32, pcf metadata.Pcf) (*ForwardRenderer, error) {
	f := &ForwardRenderer{
		context:   context,
		resources: resources,
		builtins:  builtins,
		pcf:       pcf,
	}
	for i := range f.shadows {
		shadow, err := vulkan.NewShadowFramebuffer(context, shadowMapSize)
		if err != nil {
			f.Destroy()
			return nil, err
		}
		f.shadows[i] = shadow
	}
	return f, nil
}

func (f *ForwardRenderer) State() PassState {
	return f.state
}

// Stats returns the counters accumulated since the last ResetStats.
func (f *ForwardRenderer) Stats() metadata.Stats {
	return f.stats
}

func (f *ForwardRenderer) ResetStats() {
	f.stats = metadata.Stats{}
}

// ShadowRenderpass returns the render pass shared by the shadow maps.
func (f *ForwardRenderer) ShadowRenderpass() *vulkan.VulkanRenderpass {
	return f.shadows[0].Renderpass
}

func (f *ForwardRenderer) enter(next PassState) {
	if !f.state.canEnter(next) {
		core.LogWarn("unexpected pass transition %s -> %s", f.state, next)
	}
	f.state = next
}

// resolve looks up every handle the target uses so a missing resource
// fails the frame before anything is recorded.
func (f *ForwardRenderer) resolve(target *Target) (*resolvedTarget, error) {
	orders := target.Orders()
	r := &resolvedTarget{
		meshes:    make([]*vulkan.VulkanMesh, len(orders)),
		shaders:   make(map[metadata.Handle]*vulkan.VulkanShader),
		materials: make(map[metadata.Handle]*vulkan.VulkanMaterial),
	}
	for i, o := range orders {
		mesh, err := f.resources.Meshes.Get(o.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "draw order %d", i)
		}
		r.meshes[i] = mesh
		if _, ok := r.shaders[o.Shader]; !ok {
			shader, err := f.resources.Shaders.Get(o.Shader)
			if err != nil {
				return nil, errors.Wrapf(err, "draw order %d", i)
			}
			r.shaders[o.Shader] = shader
		}
		if _, ok := r.materials[o.Material]; !ok {
			material, err := f.resources.Materials.Get(o.Material)
			if err != nil {
				return nil, errors.Wrapf(err, "draw order %d", i)
			}
			r.materials[o.Material] = material
		}
	}
	for _, h := range []metadata.Handle{f.builtins.Shadow, f.builtins.Wireframe, f.builtins.Skybox} {
		shader, err := f.resources.Shaders.Get(h)
		if err != nil {
			return nil, errors.Wrap(err, "builtin shader")
		}
		r.shaders[h] = shader
	}
	return r, nil
}

// needsShadowPass reports whether the shadow map has anything to hold.
// Without lights or casters the pass is skipped and the map is not sampled.
func needsShadowPass(target *Target) bool {
	return len(target.Lights) > 0 && target.HasShadowCasters()
}

// worldUniform computes the world uniform of a target seen from camera.
func worldUniform(camera *Camera, target *Target, width, height uint32, shadowIndex uint32, pcf metadata.Pcf, time float32) vulkan.ShaderWorld {
	world := vulkan.ShaderWorld{
		WorldToView:    camera.View(),
		ViewToClip:     camera.Projection(width, height),
		Lights:         metadata.PackLights(target.Lights),
		CameraPosition: camera.Position,
		Time:           time,
		WorldToShadow:  mgl32.Ident4(),
		AmbientColor:   target.AmbientColor,
		ShadowPcf:      pcf.Uniform(),
		ShadowIndex:    shadowIndex,
		SkyboxIndex:    metadata.SamplerIndex(metadata.FilterLinear, metadata.WrapClampEdge, false),
		ShadowBias:     target.ShadowBias,
	}
	if len(target.Lights) > 0 {
		main := target.Lights[metadata.MainLightIndex(target.Lights)]
		world.WorldToShadow = kmath.LightViewProjection(main.Coords)
	}
	if !needsShadowPass(target) {
		world.ShadowPcf = metadata.PcfNoShadowMap
	}
	return world
}

// Render records target into fb for the given frame.
func (f *ForwardRenderer) Render(frame Frame, fb *vulkan.VulkanFramebuffer, camera *Camera, target *Target) error {
	if fb.World == nil {
		return errors.Wrap(core.ErrInvalidHandle, "framebuffer cannot be drawn to")
	}
	resolved, err := f.resolve(target)
	if err != nil {
		core.LogError("%s", err)
		return err
	}

	shadow := f.shadows[frame.Slot]
	fb.World.Update(worldUniform(camera, target, fb.Width, fb.Height, uint32(shadow.ShaderIndex), f.pcf, frame.Time))
	worldSet := fb.World.Flush(frame.Slot)

	cb := frame.CommandBuffer
	layout := f.context.Layout.PipelineLayout
	cb.BindDescriptorSet(layout, 0, worldSet)
	cb.BindDescriptorSet(layout, 2, f.context.Images.Set(frame.Slot))

	var stats metadata.Stats
	if needsShadowPass(target) {
		if err := f.shadowPass(cb, shadow, resolved, target, &stats); err != nil {
			return err
		}
	}
	if err := f.colorPass(frame, fb, resolved, target, &stats); err != nil {
		return err
	}
	f.stats.Add(stats)
	return nil
}

func (f *ForwardRenderer) shadowPass(cb *vulkan.VulkanCommandBuffer, shadow *vulkan.VulkanFramebuffer, resolved *resolvedTarget, target *Target, stats *metadata.Stats) error {
	f.enter(PassShadow)
	rp := shadow.Renderpass
	rp.Begin(cb, shadow.Handle(0), shadow.Width, shadow.Height, mgl32.Vec4{})
	cb.SetViewport(shadow.Width, shadow.Height)
	cb.SetLineWidth(1)

	if err := resolved.shaders[f.builtins.Shadow].Bind(cb, rp); err != nil {
		rp.End(cb)
		return err
	}
	all := target.Orders()
	for _, i := range target.ShadowOrders() {
		f.pushOrder(cb, &all[i])
		cb.DrawMesh(resolved.meshes[i], stats)
	}
	rp.End(cb)
	return nil
}

func (f *ForwardRenderer) colorPass(frame Frame, fb *vulkan.VulkanFramebuffer, resolved *resolvedTarget, target *Target, stats *metadata.Stats) error {
	f.enter(PassColor)
	cb := frame.CommandBuffer
	rp := fb.Renderpass
	layout := f.context.Layout.PipelineLayout
	rp.Begin(cb, fb.Handle(frame.ImageIndex), fb.Width, fb.Height, target.ClearColor)
	cb.SetViewport(fb.Width, fb.Height)
	cb.SetLineWidth(target.LineWidth)

	// the pass is always closed, even when recording fails half way
	err := func() error {
		if target.Skybox && f.context.Images.HasSkybox() {
			if err := f.drawSkybox(cb, rp, resolved, stats); err != nil {
				return err
			}
		}

		orders := target.Orders()
		shaderBinds := 0
		for _, group := range target.Groups() {
			if err := resolved.shaders[group.Shader].Bind(cb, rp); err != nil {
				return err
			}
			shaderBinds++
			stats.ShadersUsed++
			for m, mg := range group.Materials {
				material := resolved.materials[mg.Material]
				cb.BindDescriptorSet(layout, 1, material.Args.Flush(frame.Slot))
				stats.MaterialsUsed++
				if m > 0 {
					stats.MaterialRebinds++
				}
				for _, i := range mg.Orders {
					f.pushOrder(cb, &orders[i])
					cb.DrawMesh(resolved.meshes[i], stats)
				}
			}
		}
		if shaderBinds > 1 {
			stats.ShaderRebinds += uint32(shaderBinds - 1)
		}

		wireframe := target.WireframeOrders()
		if len(wireframe) == 0 {
			return nil
		}
		f.enter(PassWireframe)
		if err := resolved.shaders[f.builtins.Wireframe].Bind(cb, rp); err != nil {
			return err
		}
		for _, i := range wireframe {
			f.pushOrder(cb, &orders[i])
			cb.DrawMesh(resolved.meshes[i], stats)
		}
		return nil
	}()
	rp.End(cb)
	f.enter(PassIdle)
	if err != nil {
		return err
	}

	if fb.Kind == vulkan.FramebufferOffscreen {
		fb.BlitToShaderImage(cb)
	}
	return nil
}

func (f *ForwardRenderer) drawSkybox(cb *vulkan.VulkanCommandBuffer, rp *vulkan.VulkanRenderpass, resolved *resolvedTarget, stats *metadata.Stats) error {
	cube, err := f.resources.Meshes.Get(f.builtins.Cube)
	if err != nil {
		return err
	}
	if err := resolved.shaders[f.builtins.Skybox].Bind(cb, rp); err != nil {
		return err
	}
	constants := vulkan.ShaderConstants{LocalToWorld: mgl32.Ident4(), Tint: mgl32.Vec3{1, 1, 1}}
	cb.PushConstants(f.context.Layout.PipelineLayout, &constants)
	cb.DrawMesh(cube, stats)
	return nil
}

func (f *ForwardRenderer) pushOrder(cb *vulkan.VulkanCommandBuffer, o *Order) {
	constants := vulkan.ShaderConstants{
		LocalToWorld: o.Model,
		Tint:         o.Tint,
		SamplerIndex: o.SamplerIndex,
		AlbedoIndex:  o.AlbedoIndex,
	}
	cb.PushConstants(f.context.Layout.PipelineLayout, &constants)
}

func (f *ForwardRenderer) Destroy() {
	for i, shadow := range f.shadows {
		if shadow != nil {
			shadow.Destroy()
			f.shadows[i] = nil
		}
	}
}
