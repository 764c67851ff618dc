package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	// false for swapchain images, which the swapchain owns
	owned bool

	Format    vk.Format
	Aspect    vk.ImageAspectFlags
	Samples   vk.SampleCountFlagBits
	Width     uint32
	Height    uint32
	MipLevels uint32
	Layers    uint32
}

/** @brief Creation parameters of an owned image. */
type ImageOptions struct {
	Width  uint32
	Height uint32
	Format vk.Format
	Usage  vk.ImageUsageFlags
	/** @brief Defaults to 1. */
	MipLevels uint32
	/** @brief Defaults to 1 sample. */
	Samples vk.SampleCountFlagBits
	/** @brief A 6 layer, cube compatible image with a cube view. */
	Cube bool
}

func aspectOf(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD16Unorm,
		vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		// stencil is never used, only the depth aspect is sampled and transitioned
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// VulkanFormat maps an engine pixel format to its Vulkan format. Depth uses
// the format detected on the device.
func VulkanFormat(context *VulkanContext, format metadata.Format) vk.Format {
	switch format {
	case metadata.FormatSrgba:
		return vk.FormatR8g8b8a8Srgb
	case metadata.FormatSbgra:
		return vk.FormatB8g8r8a8Srgb
	case metadata.FormatBgra:
		return vk.FormatB8g8r8a8Unorm
	case metadata.FormatGray:
		return vk.FormatR8Unorm
	case metadata.FormatRg:
		return vk.FormatR8g8Unorm
	case metadata.FormatDepth:
		return context.Device.DepthFormat
	}
	return vk.FormatR8g8b8a8Unorm
}

func ImageCreate(context *VulkanContext, opts ImageOptions) (*VulkanImage, error) {
	image := &VulkanImage{
		Format:    opts.Format,
		Aspect:    aspectOf(opts.Format),
		Samples:   opts.Samples,
		Width:     opts.Width,
		Height:    opts.Height,
		MipLevels: opts.MipLevels,
		Layers:    1,
		owned:     true,
	}
	if image.MipLevels == 0 {
		image.MipLevels = 1
	}
	if image.Samples == 0 {
		image.Samples = vk.SampleCount1Bit
	}
	var flags vk.ImageCreateFlags
	if opts.Cube {
		image.Layers = 6
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: vk.ImageType2d,
		Format:    image.Format,
		Extent: vk.Extent3D{
			Width:  image.Width,
			Height: image.Height,
			Depth:  1,
		},
		MipLevels:     image.MipLevels,
		ArrayLayers:   image.Layers,
		Samples:       image.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         opts.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		return nil, gpuError("vkCreateImage", res)
	}
	image.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	memory, err := context.allocateMemory(requirements, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.Memory = memory
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.Destroy(context)
		return nil, gpuError("vkBindImageMemory", res)
	}

	viewType := vk.ImageViewType2d
	if opts.Cube {
		viewType = vk.ImageViewTypeCube
	}
	if image.View, err = image.createView(context, viewType); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

// ImageWrap wraps an image owned elsewhere, such as a swapchain image, and
// creates a view for it.
func ImageWrap(context *VulkanContext, handle vk.Image, format vk.Format, width, height uint32) (*VulkanImage, error) {
	image := &VulkanImage{
		Handle:    handle,
		Format:    format,
		Aspect:    aspectOf(format),
		Samples:   vk.SampleCount1Bit,
		Width:     width,
		Height:    height,
		MipLevels: 1,
		Layers:    1,
	}
	view, err := image.createView(context, vk.ImageViewType2d)
	if err != nil {
		return nil, err
	}
	image.View = view
	return image, nil
}

func (img *VulkanImage) createView(context *VulkanContext, viewType vk.ImageViewType) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: viewType,
		Format:   img.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     img.Aspect,
			BaseMipLevel:   0,
			LevelCount:     img.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     img.Layers,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, gpuError("vkCreateImageView", res)
	}
	return view, nil
}

// Destroy releases the view and, for owned images, the image and its memory.
func (img *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if img.View != nil {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = nil
	}
	if !img.owned {
		img.Handle = nil
		return
	}
	if img.Handle != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = nil
	}
}

// CopyBufferToImage copies tightly packed pixels at offset into mip 0 of
// one layer. The image must be in TransferDst.
func (v *VulkanCommandBuffer) CopyBufferToImage(buffer *VulkanBuffer, offset vk.DeviceSize, image *VulkanImage, layer uint32) {
	region := vk.BufferImageCopy{
		BufferOffset:      offset,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     image.Aspect,
			MipLevel:       0,
			BaseArrayLayer: layer,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(v.Handle, buffer.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func mipExtent(size, mip uint32) int32 {
	if s := size >> mip; s > 0 {
		return int32(s)
	}
	return 1
}

// BlitImage scales one mip of every layer of src into a mip of dst. src
// must be in TransferSrc and dst in TransferDst.
func (v *VulkanCommandBuffer) BlitImage(src, dst *VulkanImage, srcMip, dstMip uint32, filter vk.Filter) {
	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     src.Aspect,
			MipLevel:       srcMip,
			BaseArrayLayer: 0,
			LayerCount:     src.Layers,
		},
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: mipExtent(src.Width, srcMip), Y: mipExtent(src.Height, srcMip), Z: 1},
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     dst.Aspect,
			MipLevel:       dstMip,
			BaseArrayLayer: 0,
			LayerCount:     dst.Layers,
		},
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: mipExtent(dst.Width, dstMip), Y: mipExtent(dst.Height, dstMip), Z: 1},
		},
	}
	vk.CmdBlitImage(v.Handle,
		src.Handle, vk.ImageLayoutTransferSrcOptimal,
		dst.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, filter)
}

// GenerateMipmaps fills mips 1..n from mip 0. Every mip must start in
// TransferDst and all of them end in ShaderRead.
func (v *VulkanCommandBuffer) GenerateMipmaps(image *VulkanImage) {
	for i := uint32(1); i < image.MipLevels; i++ {
		v.ChangeLayout(image, LayoutTransferDst, LayoutTransferSrc, MipRange(image, i-1))
		v.BlitImage(image, image, i-1, i, vk.FilterLinear)
		v.ChangeLayout(image, LayoutTransferSrc, LayoutShaderRead, MipRange(image, i-1))
	}
	v.ChangeLayout(image, LayoutTransferDst, LayoutShaderRead, MipRange(image, image.MipLevels-1))
}
