package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief The image layouts the renderer moves images through. Images never
 * store their layout, every transition names both ends.
 */
type ImageLayout int

const (
	LayoutUndefined ImageLayout = iota
	LayoutTransferSrc
	LayoutTransferDst
	LayoutColor
	LayoutDepth
	LayoutShaderRead
	LayoutPresent
)

func (l ImageLayout) Flag() vk.ImageLayout {
	switch l {
	case LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case LayoutColor:
		return vk.ImageLayoutColorAttachmentOptimal
	case LayoutDepth:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case LayoutShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case LayoutPresent:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

// AccessMask is the memory access performed while an image is in l.
func (l ImageLayout) AccessMask() vk.AccessFlags {
	switch l {
	case LayoutTransferSrc:
		return vk.AccessFlags(vk.AccessTransferReadBit)
	case LayoutTransferDst:
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	case LayoutShaderRead:
		return vk.AccessFlags(vk.AccessShaderReadBit)
	case LayoutColor:
		return vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case LayoutDepth:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}
	return 0
}

// StageMask is the pipeline stage that accesses an image in l.
func (l ImageLayout) StageMask() vk.PipelineStageFlags {
	switch l {
	case LayoutTransferSrc, LayoutTransferDst:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case LayoutShaderRead:
		return vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case LayoutColor:
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case LayoutDepth:
		return vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	}
	return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
}

/** @brief The mips and layers a transition applies to. */
type LayoutRange struct {
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// FullRange covers every mip and layer of the image.
func FullRange(image *VulkanImage) LayoutRange {
	return LayoutRange{MipCount: image.MipLevels, LayerCount: image.Layers}
}

// MipRange covers one mip of every layer of the image.
func MipRange(image *VulkanImage, mip uint32) LayoutRange {
	return LayoutRange{BaseMip: mip, MipCount: 1, LayerCount: image.Layers}
}

// LayoutBarrier builds the memory barrier of one transition.
func LayoutBarrier(image vk.Image, aspect vk.ImageAspectFlags, from, to ImageLayout, r LayoutRange) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       from.AccessMask(),
		DstAccessMask:       to.AccessMask(),
		OldLayout:           from.Flag(),
		NewLayout:           to.Flag(),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   r.BaseMip,
			LevelCount:     r.MipCount,
			BaseArrayLayer: r.BaseLayer,
			LayerCount:     r.LayerCount,
		},
	}
}

// ChangeLayout records the transition of image from one layout to another.
func (v *VulkanCommandBuffer) ChangeLayout(image *VulkanImage, from, to ImageLayout, r LayoutRange) {
	barrier := LayoutBarrier(image.Handle, image.Aspect, from, to, r)
	vk.CmdPipelineBarrier(
		v.Handle,
		from.StageMask(),
		to.StageMask(),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)
}
