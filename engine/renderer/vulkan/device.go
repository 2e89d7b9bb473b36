package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Name           string

	SwapchainSupport metadata.SwapchainSupport
	// Family used for both submission and presentation.
	QueueFamilyIndex uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
}

func deviceRequirements() metadata.DeviceRequirements {
	return metadata.DeviceRequirements{
		Extensions:     []string{vk.KhrSwapchainExtensionName},
		PreferDiscrete: runtime.GOOS != "darwin",
	}
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res, core.ErrNoSuitableDevice)
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNoSuitableDevice)
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res, core.ErrNoSuitableDevice)
	}

	candidates := make([]metadata.DeviceCandidate, len(physicalDevices))
	properties := make([]vk.PhysicalDeviceProperties, len(physicalDevices))
	for i, pd := range physicalDevices {
		vk.GetPhysicalDeviceProperties(pd, &properties[i])
		properties[i].Deref()

		candidate, err := inspectPhysicalDevice(pd, context.Surface, &properties[i])
		if err != nil {
			return err
		}
		candidates[i] = candidate
	}

	selected, family, err := metadata.SelectDevice(candidates, deviceRequirements())
	if err != nil {
		core.LogError("No physical devices were found which meet the requirements.")
		return err
	}

	chosen := candidates[selected]
	props := properties[selected]
	core.LogInfo("Selected device: '%s'.", chosen.Name)
	core.LogInfo("GPU type is %s.", chosen.Type)
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(props.DriverVersion).Major(),
		vk.Version(props.DriverVersion).Minor(),
		vk.Version(props.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(props.ApiVersion).Major(),
		vk.Version(props.ApiVersion).Minor(),
		vk.Version(props.ApiVersion).Patch(),
	)

	context.Device = &VulkanDevice{
		PhysicalDevice:   physicalDevices[selected],
		Name:             chosen.Name,
		SwapchainSupport: chosen.Swapchain,
		QueueFamilyIndex: family,
		Properties:       props,
	}
	core.LogInfo("Physical device selected.")
	return nil
}

// inspectPhysicalDevice collects what device selection needs to know
// about one physical device.
func inspectPhysicalDevice(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties) (metadata.DeviceCandidate, error) {
	candidate := metadata.DeviceCandidate{
		Name: vk.ToString(properties.DeviceName[:]),
		Type: metadata.DeviceType(properties.DeviceType),
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Look at each queue and see what queues it supports
	core.LogDebug("Graphics | Present | Index | Name")
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		family := metadata.QueueFamily{
			Index:    uint32(i),
			Graphics: vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0,
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return candidate, resultError("vkGetPhysicalDeviceSurfaceSupport", res, core.ErrNoSuitableDevice)
		}
		family.Present = supportsPresent == vk.True

		core.LogDebug("       %t |      %t |     %d | %s", family.Graphics, family.Present, i, candidate.Name)
		candidate.QueueFamilies = append(candidate.QueueFamilies, family)
	}

	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
		return candidate, resultError("vkEnumerateDeviceExtensionProperties", res, core.ErrNoSuitableDevice)
	}
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			return candidate, resultError("vkEnumerateDeviceExtensionProperties", res, core.ErrNoSuitableDevice)
		}
		for i := range availableExtensions {
			availableExtensions[i].Deref()
			candidate.Extensions = append(candidate.Extensions, vk.ToString(availableExtensions[i].ExtensionName[:]))
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		return candidate, err
	}
	candidate.Swapchain = support
	return candidate, nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (metadata.SwapchainSupport, error) {
	var support metadata.SwapchainSupport

	// Surface capabilities
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &caps); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res, core.ErrSwapchainCreation)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	support.Capabilities = metadata.SurfaceCapabilities{
		CurrentExtent:  metadata.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent: metadata.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent: metadata.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
	}

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfaceFormats", res, core.ErrSwapchainCreation)
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, formats); res != vk.Success {
			return support, resultError("vkGetPhysicalDeviceSurfaceFormats", res, core.ErrSwapchainCreation)
		}
		for i := range formats {
			formats[i].Deref()
			support.Formats = append(support.Formats, metadata.SurfaceFormat{
				Format:     metadata.Format(formats[i].Format),
				ColorSpace: metadata.ColorSpace(formats[i].ColorSpace),
			})
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return support, resultError("vkGetPhysicalDeviceSurfacePresentModes", res, core.ErrSwapchainCreation)
	}
	if presentModeCount != 0 {
		modes := make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, modes); res != vk.Success {
			return support, resultError("vkGetPhysicalDeviceSurfacePresentModes", res, core.ErrSwapchainCreation)
		}
		for _, m := range modes {
			support.PresentModes = append(support.PresentModes, metadata.PresentMode(m))
		}
	}
	return support, nil
}

// DeviceCreate creates the logical device with a single queue used for
// both graphics and presentation, and its command pool.
func DeviceCreate(context *VulkanContext) error {
	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: context.Device.QueueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if runtime.GOOS == "darwin" {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		return resultError("vkCreateDevice", res, core.ErrDeviceCreation)
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.QueueFamilyIndex, 0, &queue)
	context.Device.GraphicsQueue = queue
	context.Device.PresentQueue = queue
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.QueueFamilyIndex,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return resultError("vkCreateCommandPool", res, core.ErrDeviceCreation)
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func (d *VulkanDevice) DestroyCommandPool(context *VulkanContext) error {
	if d.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, context.Allocator)
		d.GraphicsCommandPool = vk.NullCommandPool
	}
	return nil
}

func (d *VulkanDevice) Destroy(context *VulkanContext) error {
	// Unset queues
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	if d.LogicalDevice != nil {
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
	d.SwapchainSupport = metadata.SwapchainSupport{}
	return nil
}
