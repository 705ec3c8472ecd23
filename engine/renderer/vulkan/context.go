package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceProvider is the window side of instance and surface creation.
type SurfaceProvider interface {
	InstanceProcAddress() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

type ContextConfig struct {
	ApplicationName string
	Validation      bool
}

// VulkanContext owns the instance, surface and logical device. It is the
// production Backend.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice
}

func NewVulkanContext(config ContextConfig, provider SurfaceProvider) (*VulkanContext, error) {
	procAddr := provider.InstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize vk: %w", err)
	}

	vc := &VulkanContext{Allocator: nil}
	if err := vc.createInstance(config, provider.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}

	if config.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			vc.Destroy()
			return nil, err
		}
		vc.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := provider.CreateSurface(vc.Instance)
	if err != nil {
		vc.Destroy()
		return nil, fmt.Errorf("failed to create platform surface: %w", err)
	}
	vc.Surface = surface
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vc); err != nil {
		vc.Destroy()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return vc, nil
}

func (vc *VulkanContext) createInstance(config ContextConfig, platformExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("simplegfx"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{}, platformExtensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if config.Validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if err := checkValidationLayers(); err != nil {
			return err
		}
		layers = []string{validationLayerName}
	}
	core.LogDebug("Required extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := checkResult("vkCreateInstance", vk.CreateInstance(&createInfo, vc.Allocator, &instance)); err != nil {
		return err
	}
	vc.Instance = instance
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers() error {
	core.LogInfo("Validation layers enabled. Enumerating...")
	var count uint32
	if err := checkResult("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := checkResult("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return err
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == validationLayerName {
			core.LogInfo("All required validation layers are present.")
			return nil
		}
	}
	core.LogError("Required validation layer is missing: %s", validationLayerName)
	return core.ErrValidationUnavailable
}

func (vc *VulkanContext) Limits() DeviceLimits {
	limits := vc.Device.Properties.Limits
	return DeviceLimits{
		MaxPushConstantsSize: limits.MaxPushConstantsSize,
		MaxSamplerAnisotropy: limits.MaxSamplerAnisotropy,
		MaxSamples:           vc.Device.MaxSamples,
		DepthFormat:          vc.Device.DepthFormat,
	}
}

// Destroy tears down the device, surface and instance. Every object created
// through the Backend must already be released.
func (vc *VulkanContext) Destroy() {
	DeviceDestroy(vc)
	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, vc.Allocator)
		vc.debugCallback = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
