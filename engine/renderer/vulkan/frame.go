package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
)

/** @brief The number of frames the CPU may record ahead of the GPU. */
const FramesInFlight = 2

type fenceWaiter interface {
	Wait() error
	Reset() error
}

// frameRing is the slot bookkeeping of the scheduler. It owns no GPU
// object: slot k is only reused after fences[k] has been waited on, and the
// destructions queued on k run right after that wait.
type frameRing struct {
	fences   [FramesInFlight]fenceWaiter
	deferred [FramesInFlight][]func()
	// the fence was reset but no submission took it, nothing will signal it
	unsubmitted [FramesInFlight]bool
	current     int
}

func (r *frameRing) wait(slot int) error {
	if r.unsubmitted[slot] {
		return nil
	}
	return r.fences[slot].Wait()
}

// next waits on the fence of the following slot, makes it current and
// runs its queued destructions.
func (r *frameRing) next() error {
	slot := (r.current + 1) % FramesInFlight
	if err := r.wait(slot); err != nil {
		return err
	}
	r.current = slot
	r.flush(slot)
	return nil
}

// beforeSubmit resets the current fence so it can be handed to the queue.
// Until submitted is called the fence is not waited on.
func (r *frameRing) beforeSubmit() error {
	if err := r.fences[r.current].Reset(); err != nil {
		return err
	}
	r.unsubmitted[r.current] = true
	return nil
}

func (r *frameRing) submitted() {
	r.unsubmitted[r.current] = false
}

func (r *frameRing) enqueue(fn func()) {
	r.deferred[r.current] = append(r.deferred[r.current], fn)
}

// waitAll waits on every fence and runs every queued destruction.
func (r *frameRing) waitAll() error {
	for i := range r.fences {
		if err := r.wait(i); err != nil {
			return err
		}
	}
	for i := range r.deferred {
		r.flush(i)
	}
	return nil
}

func (r *frameRing) flush(slot int) {
	queue := r.deferred[slot]
	r.deferred[slot] = nil
	for _, fn := range queue {
		fn()
	}
}

/**
 * @brief One of the rotating frame contexts.
 */
type FrameSlot struct {
	CommandBuffer *VulkanCommandBuffer
	/** @brief Signaled by the swapchain when the acquired image is ready. */
	Acquire vk.Semaphore
	/** @brief Signaled by the queue when rendering is done, waited by present. */
	Release vk.Semaphore
	Fence   *VulkanFence
}

type FrameScheduler struct {
	context    *VulkanContext
	slots      [FramesInFlight]*FrameSlot
	ring       frameRing
	imageIndex uint32
	suboptimal bool
}

func NewFrameScheduler(context *VulkanContext) (*FrameScheduler, error) {
	fs := &FrameScheduler{
		context: context,
		// the first NextFrame advances to slot 0
		ring: frameRing{current: FramesInFlight - 1},
	}
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < FramesInFlight; i++ {
		cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			return nil, err
		}
		slot := &FrameSlot{CommandBuffer: cb}
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.Acquire); res != vk.Success {
			return nil, gpuError("vkCreateSemaphore", res)
		}
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.Release); res != vk.Success {
			return nil, gpuError("vkCreateSemaphore", res)
		}
		if slot.Fence, err = NewFence(context, true); err != nil {
			return nil, err
		}
		fs.slots[i] = slot
		fs.ring.fences[i] = slot.Fence
	}
	return fs, nil
}

// Current returns the slot being recorded.
func (fs *FrameScheduler) Current() *FrameSlot {
	return fs.slots[fs.ring.current]
}

// CurrentIndex returns the index of the slot being recorded.
func (fs *FrameScheduler) CurrentIndex() int {
	return fs.ring.current
}

func (fs *FrameScheduler) ImageIndex() uint32 {
	return fs.imageIndex
}

// NextFrame waits for the next slot, acquires a swapchain image into its
// acquire semaphore and begins its command buffer. A surface that no longer
// matches returns core.ErrSwapchainOutOfDate.
func (fs *FrameScheduler) NextFrame() (uint32, error) {
	if err := fs.ring.next(); err != nil {
		return 0, err
	}
	slot := fs.Current()

	index, suboptimal, err := fs.context.Swapchain.AcquireNextImage(slot.Acquire)
	if err != nil {
		return 0, err
	}
	fs.imageIndex = index
	fs.suboptimal = suboptimal

	if err := slot.CommandBuffer.Reset(); err != nil {
		return 0, err
	}
	if err := slot.CommandBuffer.Begin(false, false, false); err != nil {
		return 0, err
	}
	return index, nil
}

// Submit ends the current command buffer and submits it. The fence is reset
// here rather than after the wait so an aborted frame leaves it signaled.
func (fs *FrameScheduler) Submit() error {
	slot := fs.Current()
	if err := slot.CommandBuffer.End(); err != nil {
		return err
	}
	if err := fs.ring.beforeSubmit(); err != nil {
		return err
	}

	device := fs.context.Device
	err := fs.context.lockPool.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		submitInfo := vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   1,
			PWaitSemaphores:      []vk.Semaphore{slot.Acquire},
			PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
			CommandBufferCount:   1,
			PCommandBuffers:      []vk.CommandBuffer{slot.CommandBuffer.Handle},
			SignalSemaphoreCount: 1,
			PSignalSemaphores:    []vk.Semaphore{slot.Release},
		}
		if res := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.Fence.Handle); res != vk.Success {
			return gpuError("vkQueueSubmit", res)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fs.ring.submitted()
	slot.CommandBuffer.UpdateSubmitted()
	return nil
}

// Present queues the acquired image once the release semaphore signals. An
// image acquired as suboptimal reports core.ErrSwapchainOutOfDate once
// presented.
func (fs *FrameScheduler) Present() error {
	device := fs.context.Device
	slot := fs.Current()
	err := fs.context.lockPool.SafeQueueCall(device.PresentQueueIndex, func() error {
		return fs.context.Swapchain.Present(device.PresentQueue, slot.Release, fs.imageIndex)
	})
	if err == nil && fs.suboptimal {
		err = errors.Wrap(core.ErrSwapchainOutOfDate, "acquired suboptimal")
	}
	fs.suboptimal = false
	return err
}

// Defer queues fn on the current slot. It runs once this slot's fence has
// been waited on again, FramesInFlight frames later.
func (fs *FrameScheduler) Defer(fn func()) {
	fs.ring.enqueue(fn)
}

// WaitForIdle waits on every in-flight frame and then on the device.
func (fs *FrameScheduler) WaitForIdle() error {
	if err := fs.ring.waitAll(); err != nil {
		return err
	}
	if res := vk.DeviceWaitIdle(fs.context.Device.LogicalDevice); res != vk.Success {
		return gpuError("vkDeviceWaitIdle", res)
	}
	return nil
}

func (fs *FrameScheduler) Destroy() {
	if err := fs.ring.waitAll(); err != nil {
		core.LogWarn("frame scheduler: %s", err)
	}
	for i, slot := range fs.slots {
		if slot == nil {
			continue
		}
		vk.DestroySemaphore(fs.context.Device.LogicalDevice, slot.Acquire, fs.context.Allocator)
		vk.DestroySemaphore(fs.context.Device.LogicalDevice, slot.Release, fs.context.Allocator)
		slot.Fence.Destroy()
		slot.CommandBuffer.Free(fs.context)
		fs.slots[i] = nil
	}
}
