package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief The world uniform (set 0), std140. One per framebuffer and frame
 * slot.
 */
type ShaderWorld struct {
	WorldToView    mgl32.Mat4
	ViewToClip     mgl32.Mat4
	Lights         [metadata.MaxLights]metadata.ShaderLight
	CameraPosition mgl32.Vec3
	/** @brief Seconds since the engine started. */
	Time          float32
	WorldToShadow mgl32.Mat4
	AmbientColor  mgl32.Vec3
	/** @brief See metadata.Pcf.Uniform. */
	ShadowPcf float32
	/** @brief Bindless slot of the shadow map. */
	ShadowIndex uint32
	/** @brief Sampler used for the skybox cubemap. */
	SkyboxIndex uint32
	ShadowBias  float32
	_           uint32
}

/** @brief The push constants of one draw. */
type ShaderConstants struct {
	LocalToWorld mgl32.Mat4
	Tint         mgl32.Vec3
	SamplerIndex uint32
	AlbedoIndex  uint32
	_            [3]uint32
}

/**
 * @brief A uniform buffer replicated per frame slot. Writes land in the CPU
 * copy and reach a slot's buffer the next time that slot is flushed, so a
 * buffer is never written while an in-flight frame reads it.
 */
type UniformSet[T any] struct {
	context *VulkanContext
	buffers [FramesInFlight]*VulkanBuffer
	sets    [FramesInFlight]vk.DescriptorSet
	pending [FramesInFlight]bool
	value   T
}

func UniformSetCreate[T any](context *VulkanContext, layout vk.DescriptorSetLayout, value T) (*UniformSet[T], error) {
	u := &UniformSet[T]{context: context, value: value}
	size := int(unsafe.Sizeof(value))

	for i := 0; i < FramesInFlight; i++ {
		buffer, err := HostBufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
		if err != nil {
			u.Destroy()
			return nil, err
		}
		u.buffers[i] = buffer

		set, err := context.Layout.AllocateSet(context, layout)
		if err != nil {
			u.Destroy()
			return nil, err
		}
		u.sets[i] = set

		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(size),
			}},
		}
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		u.pending[i] = true
	}
	return u, nil
}

func (u *UniformSet[T]) Value() T {
	return u.value
}

// Update replaces the value. Every slot picks it up on its next Flush.
func (u *UniformSet[T]) Update(value T) {
	u.value = value
	for i := range u.pending {
		u.pending[i] = true
	}
}

// Flush uploads the value to the slot's buffer if it changed since the last
// flush of that slot and returns the slot's descriptor set.
func (u *UniformSet[T]) Flush(slot int) vk.DescriptorSet {
	if u.pending[slot] {
		u.buffers[slot].Write(rawBytes(&u.value))
		u.pending[slot] = false
	}
	return u.sets[slot]
}

func (u *UniformSet[T]) Destroy() {
	for i := 0; i < FramesInFlight; i++ {
		if u.sets[i] != nil {
			u.context.Layout.FreeSet(u.context, u.sets[i])
			u.sets[i] = nil
		}
		if u.buffers[i] != nil {
			u.buffers[i].Destroy(u.context)
			u.buffers[i] = nil
		}
	}
}
