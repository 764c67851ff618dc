package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures

	DepthFormat vk.Format
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

/**
 * @brief What the engine knows about a physical device when ranking it.
 * Filled from the driver by inspectPhysicalDevice.
 */
type DeviceCandidate struct {
	Name               string
	Discrete           bool
	SwapchainExtension bool
	GraphicsQueue      bool
	PresentQueue       bool
	SamplerAnisotropy  bool
	FillModeNonSolid   bool
	WideLines          bool
	SurfaceFormats     int
	PresentModes       int
	/** @brief Supported framebuffer sample counts, as VkSampleCountFlags. */
	ColorSampleCounts uint32
	DepthSampleCounts uint32
}

// ScorePhysicalDevice ranks a device. A device lacking anything the renderer
// relies on scores 0, every other device scores at least 1 and discrete
// GPUs are preferred.
func ScorePhysicalDevice(c DeviceCandidate, msaa metadata.Msaa) int {
	samples := msaa.Samples()
	switch {
	case !c.SwapchainExtension:
		return 0
	case !c.GraphicsQueue || !c.PresentQueue:
		return 0
	case !c.SamplerAnisotropy || !c.FillModeNonSolid || !c.WideLines:
		return 0
	case c.SurfaceFormats == 0 || c.PresentModes == 0:
		return 0
	case c.ColorSampleCounts&samples == 0 || c.DepthSampleCounts&samples == 0:
		return 0
	}
	score := 1
	if c.Discrete {
		score += 100
	}
	return score
}

type physicalDeviceInfo struct {
	handle     vk.PhysicalDevice
	candidate  DeviceCandidate
	properties vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	support    VulkanSwapchainSupportInfo
	graphics   uint32
	present    uint32
}

// SelectPhysicalDevice picks the highest scoring device and returns
// core.ErrNoSuitableGpu when no device scores above 0.
func SelectPhysicalDevice(context *VulkanContext, msaa metadata.Msaa) (*VulkanDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, gpuError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableGpu, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, gpuError("vkEnumeratePhysicalDevices", res)
	}

	var best *physicalDeviceInfo
	bestScore := 0
	for _, pd := range physicalDevices {
		info, err := inspectPhysicalDevice(pd, context.Surface)
		if err != nil {
			return nil, err
		}
		score := ScorePhysicalDevice(info.candidate, msaa)
		core.LogInfo("GPU '%s' scored %d", info.candidate.Name, score)
		if score > bestScore {
			best, bestScore = info, score
		}
	}
	if best == nil {
		return nil, errors.Wrapf(core.ErrNoSuitableGpu, "none of %d devices meets the requirements for %dx msaa", physicalDeviceCount, msaa.Samples())
	}

	core.LogInfo("Selected device: '%s'.", best.candidate.Name)
	switch best.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(best.properties.DriverVersion).Major(),
		vk.Version(best.properties.DriverVersion).Minor(),
		vk.Version(best.properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(best.properties.ApiVersion).Major(),
		vk.Version(best.properties.ApiVersion).Minor(),
		vk.Version(best.properties.ApiVersion).Patch(),
	)

	return &VulkanDevice{
		PhysicalDevice:     best.handle,
		SwapchainSupport:   best.support,
		GraphicsQueueIndex: best.graphics,
		PresentQueueIndex:  best.present,
		Properties:         best.properties,
		Features:           best.features,
	}, nil
}

func inspectPhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) (*physicalDeviceInfo, error) {
	info := &physicalDeviceInfo{handle: pd}

	vk.GetPhysicalDeviceProperties(pd, &info.properties)
	info.properties.Deref()
	info.properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(pd, &info.features)
	info.features.Deref()

	c := &info.candidate
	c.Name = cString(info.properties.DeviceName[:])
	c.Discrete = info.properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
	c.SamplerAnisotropy = info.features.SamplerAnisotropy == vk.True
	c.FillModeNonSolid = info.features.FillModeNonSolid == vk.True
	c.WideLines = info.features.WideLines == vk.True
	c.ColorSampleCounts = uint32(info.properties.Limits.FramebufferColorSampleCounts)
	c.DepthSampleCounts = uint32(info.properties.Limits.FramebufferDepthSampleCounts)

	graphics, present, err := findQueueFamilies(pd, surface)
	if err != nil {
		return nil, err
	}
	c.GraphicsQueue = graphics >= 0
	c.PresentQueue = present >= 0
	info.graphics, info.present = uint32(graphics), uint32(present)

	extensions, err := deviceExtensions(pd)
	if err != nil {
		return nil, err
	}
	_, c.SwapchainExtension = extensions[vk.KhrSwapchainExtensionName]

	if err := DeviceQuerySwapchainSupport(pd, surface, &info.support); err != nil {
		return nil, err
	}
	c.SurfaceFormats = len(info.support.Formats)
	c.PresentModes = len(info.support.PresentModes)
	return info, nil
}

// findQueueFamilies returns the graphics and present families, preferring
// one family that does both. Missing families are -1.
func findQueueFamilies(pd vk.PhysicalDevice, surface vk.Surface) (int, int, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

	graphics, present := -1, -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		isGraphics := queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface, &supportsPresent); res != vk.Success {
			return -1, -1, gpuError("vkGetPhysicalDeviceSurfaceSupport", res)
		}
		isPresent := supportsPresent == vk.True

		if isGraphics && isPresent {
			return i, i, nil
		}
		if isGraphics && graphics < 0 {
			graphics = i
		}
		if isPresent && present < 0 {
			present = i
		}
	}
	return graphics, present, nil
}

func deviceExtensions(pd vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil, gpuError("vkEnumerateDeviceExtensionProperties", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, available); res != vk.Success {
			return nil, gpuError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	names := make(map[string]struct{}, count)
	for i := range available {
		available[i].Deref()
		names[cString(available[i].ExtensionName[:])] = struct{}{}
	}
	return names, nil
}

// DeviceCreate creates the logical device, its queues and the graphics
// command pool on the physical device already chosen.
func DeviceCreate(context *VulkanContext) error {
	device := context.Device
	core.LogInfo("Creating logical device...")

	indices := []uint32{device.GraphicsQueueIndex}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, device.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		context.lockPool.SetQueueFamily(index)
	}

	// wireframes need non solid fill and the overlay uses wide lines
	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
		FillModeNonSolid:  vk.True,
		WideLines:         vk.True,
	}
	if device.Features.ShaderSampledImageArrayDynamicIndexing == vk.True {
		deviceFeatures.ShaderSampledImageArrayDynamicIndexing = vk.True
	}

	available, err := deviceExtensions(device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if _, ok := available[portabilitySubsetExtensionName]; ok {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		return gpuError("vkCreateDevice", res)
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &presentQueue)
	device.GraphicsQueue, device.PresentQueue = graphicsQueue, presentQueue

	// frame command buffers are reset individually every frame
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return gpuError("vkCreateCommandPool", res)
	}
	device.GraphicsCommandPool = pool

	if !DeviceDetectDepthFormat(device) {
		return errors.Wrap(core.ErrNoSuitableGpu, "no supported depth format")
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil

	if device.GraphicsCommandPool != nil {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = nil
	}
	if device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}
	// physical devices are not destroyed
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return gpuError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return gpuError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return gpuError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return gpuError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return gpuError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	// the shadow map is sampled, so the format needs both features
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit | vk.FormatFeatureSampledImageBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}
