package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func samplerAddressMode(wrap metadata.Wrap) vk.SamplerAddressMode {
	switch wrap {
	case metadata.WrapClampBorder:
		return vk.SamplerAddressModeClampToBorder
	case metadata.WrapClampEdge:
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

// SamplerCreate creates the sampler at the given index of the image table.
// Borders are opaque white so that a clamped shadow map lookup reads as lit.
func SamplerCreate(context *VulkanContext, index uint32) (vk.Sampler, error) {
	filter, wrap, mipmaps := metadata.SamplerConfig(index)

	vkFilter := vk.FilterLinear
	mipmapMode := vk.SamplerMipmapModeLinear
	if filter == metadata.FilterNearest {
		vkFilter = vk.FilterNearest
		mipmapMode = vk.SamplerMipmapModeNearest
	}
	maxLod := float32(0)
	if mipmaps {
		// VK_LOD_CLAMP_NONE
		maxLod = 1000
	}
	address := samplerAddressMode(wrap)

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vkFilter,
		MinFilter:               vkFilter,
		MipmapMode:              mipmapMode,
		AddressModeU:            address,
		AddressModeV:            address,
		AddressModeW:            address,
		MipLodBias:              0,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  maxLod,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
	}
	if context.Anisotropy > 1 && filter == metadata.FilterLinear {
		limit := context.Device.Properties.Limits.MaxSamplerAnisotropy
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = min(context.Anisotropy, limit)
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		return nil, gpuError("vkCreateSampler", res)
	}
	return sampler, nil
}
