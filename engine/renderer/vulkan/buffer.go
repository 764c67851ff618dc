package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	// persistently mapped pointer of host visible buffers
	mapped unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size int, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: vk.DeviceSize(size)}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buffer.Size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, gpuError("vkCreateBuffer", res)
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	memory, err := context.allocateMemory(requirements, properties)
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, gpuError("vkBindBufferMemory", res)
	}
	return buffer, nil
}

// HostBufferCreate creates a host visible, coherent buffer mapped for its
// whole lifetime.
func HostBufferCreate(context *VulkanContext, size int, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	buffer, err := BufferCreate(context, size, usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, buffer.Size, 0, &data); res != vk.Success {
		buffer.Destroy(context)
		return nil, gpuError("vkMapMemory", res)
	}
	buffer.mapped = data
	return buffer, nil
}

// Write copies data to the start of a host buffer.
func (b *VulkanBuffer) Write(data []byte) {
	vk.Memcopy(b.mapped, data)
}

// DeviceBufferCreate uploads data into a new device local buffer through a
// temporary staging buffer.
func DeviceBufferCreate(context *VulkanContext, usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	staging, err := HostBufferCreate(context, len(data), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)
	staging.Write(data)

	buffer, err := BufferCreate(context, len(data), usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	err = context.DoCommands(func(cb *VulkanCommandBuffer) error {
		region := vk.BufferCopy{Size: buffer.Size}
		vk.CmdCopyBuffer(cb.Handle, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{region})
		return nil
	})
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = nil
	}
}
