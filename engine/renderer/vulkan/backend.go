package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief The window the renderer presents to. */
type Window interface {
	/** @brief Creates a VkSurfaceKHR for the given VkInstance. */
	CreateWindowSurface(instance interface{}) (uintptr, error)
	GetRequiredInstanceExtensions() []string
	/** @brief The loader's vkGetInstanceProcAddr. */
	GetInstanceProcAddress() unsafe.Pointer
	/** @brief The drawable size in pixels. */
	FramebufferSize() (int, int)
}

type BackendOptions struct {
	AppName    string
	Validation bool
	Vsync      bool
	Msaa       metadata.Msaa
	Anisotropy float32
}

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// NewContext brings up Vulkan for a window: instance, surface, device,
// shared layouts, image table, swapchain and frame slots.
func NewContext(window Window, opts BackendOptions) (*VulkanContext, error) {
	procAddr := window.GetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.Wrap(core.ErrNoSuitableGpu, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(core.ErrNoSuitableGpu, err.Error())
	}

	context := &VulkanContext{
		Allocator:  nil,
		Msaa:       opts.Msaa,
		Anisotropy: opts.Anisotropy,
		Vsync:      opts.Vsync,
		lockPool:   NewVulkanLockPool(),
	}
	if err := context.initialize(window, opts); err != nil {
		context.Shutdown()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return context, nil
}

func (vc *VulkanContext) initialize(window Window, opts BackendOptions) error {
	if err := vc.createInstance(window, opts); err != nil {
		return err
	}
	if opts.Validation {
		if err := vc.createDebugCallback(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(vc.Instance)
	if err != nil {
		return errors.Wrapf(core.ErrGpuCall, "surface creation failed: %s", err)
	}
	vc.Surface = vk.SurfaceFromPointer(surface)

	device, err := SelectPhysicalDevice(vc, opts.Msaa)
	if err != nil {
		return err
	}
	vc.Device = device
	if err := DeviceCreate(vc); err != nil {
		return err
	}

	if vc.Layout, err = ShaderLayoutCreate(vc); err != nil {
		return err
	}
	if vc.Images, err = ImageTableCreate(vc); err != nil {
		return err
	}

	width, height := window.FramebufferSize()
	if vc.Swapchain, err = SwapchainCreate(vc, uint32(width), uint32(height)); err != nil {
		return err
	}
	if vc.Frames, err = NewFrameScheduler(vc); err != nil {
		return err
	}
	return nil
}

// ApiVersion is the Vulkan version requested from the instance.
var ApiVersion = vk.MakeVersion(1, 2, 0)

func (vc *VulkanContext) createInstance(window Window, opts BackendOptions) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(ApiVersion),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(opts.AppName),
		PEngineName:        VulkanSafeString("Kiln"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{}, window.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if opts.Validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		ok, err := hasInstanceLayer(validationLayerName)
		if err != nil {
			return err
		}
		if ok {
			layers = append(layers, validationLayerName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("validation requested but %s is not installed", validationLayerName)
		}
	}
	for _, e := range extensions {
		core.LogDebug("Instance extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vc.Allocator, &instance); res != vk.Success {
		return gpuError("vkCreateInstance", res)
	}
	vc.Instance = instance
	if err := vk.InitInstance(vc.Instance); err != nil {
		return errors.Wrap(core.ErrGpuCall, err.Error())
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func hasInstanceLayer(name string) (bool, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false, gpuError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false, gpuError("vkEnumerateInstanceLayerProperties", res)
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

func (vc *VulkanContext) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		return gpuError("vkCreateDebugReportCallback", res)
	}
	vc.debugMessenger = dbg
	return nil
}

// RecreateSwapchain rebuilds the swapchain for the window's new size. The
// caller waits for idle first.
func (vc *VulkanContext) RecreateSwapchain(width, height uint32) error {
	if err := vc.Swapchain.Recreate(width, height); err != nil {
		return err
	}
	core.LogDebug("swapchain recreated at %dx%d", vc.Swapchain.Extent.Width, vc.Swapchain.Extent.Height)
	return nil
}

// Shutdown destroys the objects owned by the context, dependents first.
// Resources created on top of it must be destroyed before.
func (vc *VulkanContext) Shutdown() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
	}
	if vc.Frames != nil {
		vc.Frames.Destroy()
		vc.Frames = nil
	}
	if vc.Swapchain != nil {
		vc.Swapchain.Destroy()
		vc.Swapchain = nil
	}
	if vc.Images != nil {
		vc.Images.Destroy()
		vc.Images = nil
	}
	if vc.Layout != nil {
		vc.Layout.Destroy(vc)
		vc.Layout = nil
	}
	DeviceDestroy(vc)
	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
