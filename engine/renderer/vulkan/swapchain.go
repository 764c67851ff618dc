package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	kmath "github.com/spaghettifunk/kiln/engine/math"
)

type VulkanSwapchain struct {
	context     *VulkanContext
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	PresentMode vk.PresentMode
	// Handle only images owned by the swapchain, each with one view.
	Images []*VulkanImage
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{context: context}
	if err := swapchain.create(width, height, nil); err != nil {
		return nil, err
	}
	return swapchain, nil
}

// Recreate builds a new swapchain for the given size and retires the old
// one. The caller must have waited for the device to be idle.
func (vs *VulkanSwapchain) Recreate(width, height uint32) error {
	old := vs.Handle
	vs.destroyViews()
	if err := DeviceQuerySwapchainSupport(vs.context.Device.PhysicalDevice, vs.context.Surface, &vs.context.Device.SwapchainSupport); err != nil {
		return err
	}
	if err := vs.create(width, height, old); err != nil {
		return err
	}
	vk.DestroySwapchain(vs.context.Device.LogicalDevice, old, vs.context.Allocator)
	return nil
}

func (vs *VulkanSwapchain) Destroy() {
	vs.destroyViews()
	if vs.Handle != nil {
		vk.DestroySwapchain(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
		vs.Handle = nil
	}
}

// AcquireNextImage signals semaphore once the returned image can be
// rendered to. A suboptimal image is still returned, with suboptimal set.
func (vs *VulkanSwapchain) AcquireNextImage(semaphore vk.Semaphore) (index uint32, suboptimal bool, err error) {
	res := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, math.MaxUint64, semaphore, nil, &index)
	suboptimal, err = acquireResult(res)
	if err != nil {
		return 0, false, err
	}
	return index, suboptimal, nil
}

// acquireResult maps the result of an acquire. A suboptimal image was still
// acquired and its semaphore will signal, so it must be rendered and
// presented before the swapchain is rebuilt.
func acquireResult(res vk.Result) (bool, error) {
	switch res {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	case vk.ErrorOutOfDate:
		return false, errors.Wrap(core.ErrSwapchainOutOfDate, "acquire")
	}
	return false, gpuError("vkAcquireNextImageKHR", res)
}

func (vs *VulkanSwapchain) Present(queue vk.Queue, semaphore vk.Semaphore, index uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{index},
	}
	res := vk.QueuePresent(queue, &presentInfo)
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return errors.Wrap(core.ErrSwapchainOutOfDate, "present")
	}
	return gpuError("vkQueuePresentKHR", res)
}

func (vs *VulkanSwapchain) create(width, height uint32, old vk.Swapchain) error {
	context := vs.context
	support := context.Device.SwapchainSupport

	vs.ImageFormat = chooseSurfaceFormat(support.Formats)
	vs.PresentMode = choosePresentMode(support.PresentModes, context.Vsync)
	vs.Extent = chooseExtent(support.Capabilities, width, height)
	imageCount := chooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      vs.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vs.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return gpuError("vkCreateSwapchainKHR", res)
	}
	vs.Handle = handle

	var count uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &count, nil); res != vk.Success {
		return gpuError("vkGetSwapchainImagesKHR", res)
	}
	handles := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &count, handles); res != vk.Success {
		return gpuError("vkGetSwapchainImagesKHR", res)
	}

	vs.Images = make([]*VulkanImage, count)
	for i, h := range handles {
		image, err := ImageWrap(context, h, vs.ImageFormat.Format, vs.Extent.Width, vs.Extent.Height)
		if err != nil {
			return err
		}
		vs.Images[i] = image
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", vs.Extent.Width, vs.Extent.Height, count)
	return nil
}

func (vs *VulkanSwapchain) destroyViews() {
	// the images belong to the swapchain, only the views are ours
	for _, image := range vs.Images {
		image.Destroy(vs.context)
	}
	vs.Images = nil
}

// chooseSurfaceFormat prefers 8 bit sRGB BGRA, else the first format.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode returns FIFO under vsync. Otherwise it prefers mailbox,
// then immediate, and falls back to FIFO which is always available.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, mode := range modes {
			if mode == preferred {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	low, high := capabilities.MinImageExtent, capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  kmath.Clamp(width, low.Width, high.Width),
		Height: kmath.Clamp(height, low.Height, high.Height),
	}
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}
