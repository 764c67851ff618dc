package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type FramebufferKind int

const (
	/** @brief Draws into the swapchain images and is presented. */
	FramebufferWindow FramebufferKind = iota
	/** @brief Draws into owned images and exposes a copy to the shaders. */
	FramebufferOffscreen
	/** @brief A depth only target whose depth image is sampled directly. */
	FramebufferShadow
)

// framebufferTarget is one native framebuffer and the images behind its
// attachments, in render pass order.
type framebufferTarget struct {
	handle vk.Framebuffer
	images []*VulkanImage
}

type VulkanFramebuffer struct {
	context    *VulkanContext
	Kind       FramebufferKind
	Renderpass *VulkanRenderpass
	Width      uint32
	Height     uint32
	ClearColor mgl32.Vec4

	// one per swapchain image for window framebuffers, one otherwise
	targets []framebufferTarget

	/** @brief The image the shaders sample, a copy of the stored color attachment. */
	ShaderImage *VulkanImage
	/** @brief Bindless slot of the shader visible image, -1 when there is none. */
	ShaderIndex int

	/** @brief World uniform, nil for shadow framebuffers. */
	World *UniformSet[ShaderWorld]

	resizePending bool
	pendingWidth  uint32
	pendingHeight uint32
}

// NewWindowFramebuffers creates the framebuffer presented to the window,
// one native framebuffer per swapchain image.
func NewWindowFramebuffers(context *VulkanContext) (*VulkanFramebuffer, error) {
	swapchain := context.Swapchain
	renderpass, err := RenderpassCreate(context, true, []AttachmentRequest{{
		Format:  swapchain.ImageFormat.Format,
		Present: true,
	}}, context.Msaa)
	if err != nil {
		return nil, err
	}
	fb := &VulkanFramebuffer{
		context:     context,
		Kind:        FramebufferWindow,
		Renderpass:  renderpass,
		Width:       swapchain.Extent.Width,
		Height:      swapchain.Extent.Height,
		ShaderIndex: -1,
	}
	if err := fb.createWorld(); err != nil {
		fb.Destroy()
		return nil, err
	}
	if err := fb.build(); err != nil {
		fb.Destroy()
		return nil, err
	}
	return fb, nil
}

// NewFramebuffer creates an offscreen color framebuffer with a depth
// attachment. Its result is readable by shaders through ShaderIndex.
func NewFramebuffer(context *VulkanContext, width, height uint32) (*VulkanFramebuffer, error) {
	renderpass, err := RenderpassCreate(context, true, []AttachmentRequest{{
		Format: VulkanFormat(context, metadata.FormatRgba),
	}}, context.Msaa)
	if err != nil {
		return nil, err
	}
	fb := &VulkanFramebuffer{
		context:     context,
		Kind:        FramebufferOffscreen,
		Renderpass:  renderpass,
		Width:       width,
		Height:      height,
		ShaderIndex: -1,
	}
	if err := fb.createWorld(); err != nil {
		fb.Destroy()
		return nil, err
	}
	if err := fb.build(); err != nil {
		fb.Destroy()
		return nil, err
	}
	return fb, nil
}

// NewShadowFramebuffer creates a square depth only framebuffer. The depth
// image itself is registered in the image table.
func NewShadowFramebuffer(context *VulkanContext, size uint32) (*VulkanFramebuffer, error) {
	renderpass, err := RenderpassCreate(context, true, nil, metadata.MsaaDisabled)
	if err != nil {
		return nil, err
	}
	fb := &VulkanFramebuffer{
		context:     context,
		Kind:        FramebufferShadow,
		Renderpass:  renderpass,
		Width:       size,
		Height:      size,
		ShaderIndex: -1,
	}
	if err := fb.build(); err != nil {
		fb.Destroy()
		return nil, err
	}
	return fb, nil
}

func (fb *VulkanFramebuffer) createWorld() error {
	world, err := UniformSetCreate(fb.context, fb.context.Layout.WorldLayout, ShaderWorld{})
	if err != nil {
		return err
	}
	fb.World = world
	return nil
}

// build creates the attachment images, the native framebuffers and the
// shader visible image for the current size.
func (fb *VulkanFramebuffer) build() error {
	count := 1
	if fb.Kind == FramebufferWindow {
		count = len(fb.context.Swapchain.Images)
	}
	for i := 0; i < count; i++ {
		target, err := fb.buildTarget(i)
		fb.targets = append(fb.targets, target)
		if err != nil {
			return err
		}
	}

	var visible *VulkanImage
	switch fb.Kind {
	case FramebufferOffscreen:
		image, err := ImageCreate(fb.context, ImageOptions{
			Width:  fb.Width,
			Height: fb.Height,
			Format: VulkanFormat(fb.context, metadata.FormatRgba),
			Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		})
		if err != nil {
			return err
		}
		fb.ShaderImage = image
		visible = image
	case FramebufferShadow:
		visible = fb.targets[0].images[0]
	}

	if err := fb.context.DoCommands(func(cb *VulkanCommandBuffer) error {
		for _, target := range fb.targets {
			for i, a := range fb.Renderpass.Attachments {
				if a.Store && fb.owns(a) {
					img := target.images[i]
					cb.ChangeLayout(img, LayoutUndefined, LayoutShaderRead, FullRange(img))
				}
			}
		}
		if fb.ShaderImage != nil {
			cb.ChangeLayout(fb.ShaderImage, LayoutUndefined, LayoutShaderRead, FullRange(fb.ShaderImage))
		}
		return nil
	}); err != nil {
		return err
	}

	if visible == nil {
		return nil
	}
	if fb.ShaderIndex >= 0 {
		return fb.context.Images.Replace(fb.ShaderIndex, visible.View)
	}
	slot, err := fb.context.Images.Add(visible.View)
	if err != nil {
		return err
	}
	fb.ShaderIndex = slot
	return nil
}

// owns reports whether the framebuffer creates the image of an attachment.
// The stored color attachment of a window framebuffer is a swapchain image.
func (fb *VulkanFramebuffer) owns(a Attachment) bool {
	return !(fb.Kind == FramebufferWindow && a.Role == AttachmentColor)
}

func (fb *VulkanFramebuffer) buildTarget(index int) (framebufferTarget, error) {
	target := framebufferTarget{}
	for _, a := range fb.Renderpass.Attachments {
		if !fb.owns(a) {
			target.images = append(target.images, fb.context.Swapchain.Images[index])
			continue
		}
		var usage vk.ImageUsageFlags
		switch a.Role {
		case AttachmentDepth:
			usage = vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
			if a.Store {
				usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
			}
		case AttachmentColor:
			usage = vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageSampledBit)
		case AttachmentMultisampled:
			usage = vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransientAttachmentBit)
		}
		image, err := ImageCreate(fb.context, ImageOptions{
			Width:   fb.Width,
			Height:  fb.Height,
			Format:  a.Format,
			Usage:   usage,
			Samples: vk.SampleCountFlagBits(a.Samples),
		})
		if err != nil {
			return target, err
		}
		target.images = append(target.images, image)
	}

	views := make([]vk.ImageView, len(target.images))
	for i, image := range target.images {
		views[i] = image.View
	}
	framebufferInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      fb.Renderpass.Handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           fb.Width,
		Height:          fb.Height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(fb.context.Device.LogicalDevice, &framebufferInfo, fb.context.Allocator, &handle); res != vk.Success {
		return target, gpuError("vkCreateFramebuffer", res)
	}
	target.handle = handle
	return target, nil
}

// Handle returns the native framebuffer to begin the render pass on.
func (fb *VulkanFramebuffer) Handle(imageIndex uint32) vk.Framebuffer {
	if fb.Kind == FramebufferWindow {
		return fb.targets[imageIndex].handle
	}
	return fb.targets[0].handle
}

// Resize schedules a rebuild for the next UpdateIfNeeded.
func (fb *VulkanFramebuffer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	fb.resizePending = true
	fb.pendingWidth = width
	fb.pendingHeight = height
}

// UpdateIfNeeded rebuilds the images of a resized framebuffer. The old
// images are released once the frames that may use them have completed.
func (fb *VulkanFramebuffer) UpdateIfNeeded() error {
	if !fb.resizePending {
		return nil
	}
	fb.resizePending = false
	if fb.Kind == FramebufferWindow {
		fb.pendingWidth = fb.context.Swapchain.Extent.Width
		fb.pendingHeight = fb.context.Swapchain.Extent.Height
	}
	core.LogDebug("framebuffer resized from %dx%d to %dx%d", fb.Width, fb.Height, fb.pendingWidth, fb.pendingHeight)

	targets, shaderImage := fb.targets, fb.ShaderImage
	fb.context.Frames.Defer(func() {
		fb.destroyTargets(targets, shaderImage)
	})
	fb.targets = nil
	fb.ShaderImage = nil
	fb.Width = fb.pendingWidth
	fb.Height = fb.pendingHeight
	return fb.build()
}

// BlitToShaderImage copies the stored color attachment into the shader
// visible image. Called after the render pass ended.
func (fb *VulkanFramebuffer) BlitToShaderImage(cb *VulkanCommandBuffer) {
	if fb.ShaderImage == nil {
		return
	}
	var stored *VulkanImage
	for i, a := range fb.Renderpass.Attachments {
		if a.Role == AttachmentColor {
			stored = fb.targets[0].images[i]
			break
		}
	}
	cb.ChangeLayout(stored, LayoutShaderRead, LayoutTransferSrc, FullRange(stored))
	cb.ChangeLayout(fb.ShaderImage, LayoutShaderRead, LayoutTransferDst, FullRange(fb.ShaderImage))
	cb.BlitImage(stored, fb.ShaderImage, 0, 0, vk.FilterNearest)
	cb.ChangeLayout(stored, LayoutTransferSrc, LayoutShaderRead, FullRange(stored))
	cb.ChangeLayout(fb.ShaderImage, LayoutTransferDst, LayoutShaderRead, FullRange(fb.ShaderImage))
}

func (fb *VulkanFramebuffer) destroyTargets(targets []framebufferTarget, shaderImage *VulkanImage) {
	for _, target := range targets {
		if target.handle != nil {
			vk.DestroyFramebuffer(fb.context.Device.LogicalDevice, target.handle, fb.context.Allocator)
		}
		for i, image := range target.images {
			if image != nil && fb.owns(fb.Renderpass.Attachments[i]) {
				image.Destroy(fb.context)
			}
		}
	}
	if shaderImage != nil {
		shaderImage.Destroy(fb.context)
	}
}

// Release empties the shader visible slot now and destroys the framebuffer
// once no frame in flight can use it.
func (fb *VulkanFramebuffer) Release() {
	slot := fb.ShaderIndex
	fb.ShaderIndex = -1
	fb.context.Images.Retire(slot, fb.Destroy)
}

// Destroy releases everything immediately. The caller makes sure no frame
// in flight still uses the framebuffer.
func (fb *VulkanFramebuffer) Destroy() {
	if fb.Renderpass != nil {
		fb.destroyTargets(fb.targets, fb.ShaderImage)
	}
	fb.targets = nil
	fb.ShaderImage = nil
	if fb.ShaderIndex >= 0 {
		fb.context.Images.Remove(fb.ShaderIndex)
		fb.ShaderIndex = -1
	}
	if fb.World != nil {
		fb.World.Destroy()
		fb.World = nil
	}
	if fb.Renderpass != nil {
		fb.Renderpass.Destroy(fb.context)
		fb.Renderpass = nil
	}
}
