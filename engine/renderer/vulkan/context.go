package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// only set when validation is enabled
	debugMessenger vk.DebugReportCallback

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain
	Frames    *FrameScheduler

	// Shared descriptor set layouts and the single pipeline layout.
	Layout *ShaderLayout
	// The bindless image table bound as set 2 by every pipeline.
	Images *ImageTable

	Msaa       metadata.Msaa
	Anisotropy float32
	Vsync      bool

	lockPool *VulkanLockPool
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all the requested property flags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return i, nil
		}
	}
	err := errors.Wrapf(core.ErrGpuCall, "no memory type matches filter %#x with flags %#x", typeFilter, propertyFlags)
	core.LogError("%s", err)
	return 0, err
}

// allocateMemory allocates device memory satisfying the requirements.
func (vc *VulkanContext) allocateMemory(requirements vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	requirements.Deref()
	index, err := vc.FindMemoryIndex(requirements.MemoryTypeBits, flags)
	if err != nil {
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory); res != vk.Success {
		return nil, gpuError("vkAllocateMemory", res)
	}
	return memory, nil
}
