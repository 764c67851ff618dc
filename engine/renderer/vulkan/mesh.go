package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief Geometry uploaded to device local memory. */
type VulkanMesh struct {
	Vertices   *VulkanBuffer
	Indices    *VulkanBuffer
	IndexCount uint32
}

func MeshCreate(context *VulkanContext, data metadata.MeshData) (*VulkanMesh, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	vertices, err := DeviceBufferCreate(context, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), sliceBytes(data.Vertices))
	if err != nil {
		return nil, err
	}
	indices, err := DeviceBufferCreate(context, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), sliceBytes(data.Indices))
	if err != nil {
		vertices.Destroy(context)
		return nil, err
	}
	return &VulkanMesh{
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: uint32(len(data.Indices)),
	}, nil
}

func (m *VulkanMesh) Destroy(context *VulkanContext) {
	if m.Vertices != nil {
		m.Vertices.Destroy(context)
		m.Vertices = nil
	}
	if m.Indices != nil {
		m.Indices.Destroy(context)
		m.Indices = nil
	}
}
