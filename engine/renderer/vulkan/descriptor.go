package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

const (
	/** @brief Set 0, the world uniform of the framebuffer being drawn. */
	WorldSet uint32 = 0
	/** @brief Set 1, the argument block of the bound material. */
	MaterialSet uint32 = 1
	/** @brief Set 2, the bindless image table. */
	ImageSet uint32 = 2

	// enough for a few hundred materials and framebuffers
	maxUniformSets = 512
)

/**
 * @brief The descriptor set layouts and the single pipeline layout shared by
 * every shader, plus the pool all sets are allocated from.
 */
type ShaderLayout struct {
	WorldLayout    vk.DescriptorSetLayout
	MaterialLayout vk.DescriptorSetLayout
	ImageLayout    vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
	pool           vk.DescriptorPool
}

func uniformSetLayout(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	return createSetLayout(context, []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	}})
}

func createSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		return nil, gpuError("vkCreateDescriptorSetLayout", res)
	}
	return layout, nil
}

func ShaderLayoutCreate(context *VulkanContext) (*ShaderLayout, error) {
	sl := &ShaderLayout{}
	var err error

	if sl.WorldLayout, err = uniformSetLayout(context); err != nil {
		return nil, err
	}
	if sl.MaterialLayout, err = uniformSetLayout(context); err != nil {
		sl.Destroy(context)
		return nil, err
	}
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	sl.ImageLayout, err = createSetLayout(context, []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: MaxBindlessImages,
			StageFlags:      stages,
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: metadata.SamplerCount,
			StageFlags:      stages,
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      stages,
		},
	})
	if err != nil {
		sl.Destroy(context)
		return nil, err
	}

	pushConstantRange := vk.PushConstantRange{
		StageFlags: stages,
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(ShaderConstants{})),
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         3,
		PSetLayouts:            []vk.DescriptorSetLayout{sl.WorldLayout, sl.MaterialLayout, sl.ImageLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		sl.Destroy(context)
		return nil, gpuError("vkCreatePipelineLayout", res)
	}
	sl.PipelineLayout = pipelineLayout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxUniformSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: (MaxBindlessImages + 1) * FramesInFlight},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: metadata.SamplerCount * FramesInFlight},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxUniformSets + FramesInFlight,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		sl.Destroy(context)
		return nil, gpuError("vkCreateDescriptorPool", res)
	}
	sl.pool = pool
	return sl, nil
}

// AllocateSet allocates one descriptor set of the given layout.
func (sl *ShaderLayout) AllocateSet(context *VulkanContext, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	var set vk.DescriptorSet
	err := context.lockPool.SafeCall(DescriptorManagement, func() error {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     sl.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); res != vk.Success {
			return gpuError("vkAllocateDescriptorSets", res)
		}
		return nil
	})
	return set, err
}

func (sl *ShaderLayout) FreeSet(context *VulkanContext, set vk.DescriptorSet) {
	_ = context.lockPool.SafeCall(DescriptorManagement, func() error {
		vk.FreeDescriptorSets(context.Device.LogicalDevice, sl.pool, 1, &set)
		return nil
	})
}

func (sl *ShaderLayout) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if sl.pool != nil {
		vk.DestroyDescriptorPool(device, sl.pool, context.Allocator)
		sl.pool = nil
	}
	if sl.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, sl.PipelineLayout, context.Allocator)
		sl.PipelineLayout = nil
	}
	for _, layout := range []*vk.DescriptorSetLayout{&sl.WorldLayout, &sl.MaterialLayout, &sl.ImageLayout} {
		if *layout != nil {
			vk.DestroyDescriptorSetLayout(device, *layout, context.Allocator)
			*layout = nil
		}
	}
}
