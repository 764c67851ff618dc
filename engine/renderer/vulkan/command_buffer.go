package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	pool   vk.CommandPool
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	cb := &VulkanCommandBuffer{
		pool:  pool,
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, gpuError("vkAllocateCommandBuffers", res)
	}
	cb.Handle = handles[0]
	cb.State = COMMAND_BUFFER_STATE_READY

	return cb, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext) {
	if v.Handle != nil {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, v.pool, 1, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return gpuError("vkBeginCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return gpuError("vkEndCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset returns the buffer to the initial state, dropping anything a
// previous aborted frame left recorded.
func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return gpuError("vkResetCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// DoCommands records fn into a one-shot command buffer, submits it on the
// graphics queue and waits for the queue to drain. Used for uploads and the
// initial layout of new images, never inside a frame's recording.
func (vc *VulkanContext) DoCommands(fn func(cb *VulkanCommandBuffer) error) error {
	cb, err := NewVulkanCommandBuffer(vc, vc.Device.GraphicsCommandPool, true)
	if err != nil {
		return err
	}
	defer cb.Free(vc)

	if err := cb.Begin(true, false, false); err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}

	queue := vc.Device.GraphicsQueue
	return vc.lockPool.SafeQueueCall(vc.Device.GraphicsQueueIndex, func() error {
		submitInfo := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		}
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, nil); res != vk.Success {
			return gpuError("vkQueueSubmit", res)
		}
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			return gpuError("vkQueueWaitIdle", res)
		}
		return nil
	})
}

// SetViewport sets a viewport flipped on y so that +y points up in clip
// space, and a scissor covering the same area.
func (v *VulkanCommandBuffer) SetViewport(width, height uint32) {
	viewport := vk.Viewport{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) SetLineWidth(width float32) {
	vk.CmdSetLineWidth(v.Handle, width)
}

func (v *VulkanCommandBuffer) BindDescriptorSet(layout vk.PipelineLayout, set uint32, descriptor vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(v.Handle, vk.PipelineBindPointGraphics, layout, set, 1, []vk.DescriptorSet{descriptor}, 0, nil)
}

func (v *VulkanCommandBuffer) PushConstants(layout vk.PipelineLayout, constants *ShaderConstants) {
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	vk.CmdPushConstants(v.Handle, layout, stages, 0, uint32(unsafe.Sizeof(*constants)), unsafe.Pointer(constants))
}

// DrawMesh binds the buffers of the mesh and issues one indexed draw.
func (v *VulkanCommandBuffer) DrawMesh(mesh *VulkanMesh, stats *metadata.Stats) {
	vk.CmdBindVertexBuffers(v.Handle, 0, 1, []vk.Buffer{mesh.Vertices.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(v.Handle, mesh.Indices.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(v.Handle, mesh.IndexCount, 1, 0, 0, 0)
	if stats != nil {
		stats.DrawCalls++
		stats.DrawnIndices += mesh.IndexCount
	}
}
