package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/platform"
	"github.com/spaghettifunk/vkplayground/engine/renderer"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext
	teardown *core.Teardown
}

func New(p *platform.Platform) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			locks:     NewVulkanLockPool(),
		},
		teardown: core.NewTeardown(),
	}
}

// Initialize creates every object the frame loop needs, up to the recorded
// command buffers. When a step fails the objects created so far are released
// in reverse order.
func (vr *VulkanRenderer) Initialize(config metadata.RendererBackendConfig) (err error) {
	defer func() {
		if err != nil {
			core.LogError("Vulkan renderer initialization failed: %s", err)
			vr.teardown.Release()
		}
	}()

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrInitialization)
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w: %w", core.ErrInitialization, err)
	}

	vr.context.FramebufferWidth, vr.context.FramebufferHeight = vr.platform.FramebufferSize()

	if err := vr.createInstance(config); err != nil {
		return err
	}

	// Debugger
	if config.Validation {
		if err := vr.createDebugger(); err != nil {
			return err
		}
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		return fmt.Errorf("vulkan surface creation failed: %w: %w", core.ErrInitialization, err)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	vr.teardown.Push("Vulkan surface", func() error {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
		return nil
	})
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := SelectPhysicalDevice(vr.context); err != nil {
		return err
	}
	if err := DeviceCreate(vr.context); err != nil {
		return err
	}
	device := vr.context.Device
	vr.teardown.Push("Vulkan device", func() error { return device.Destroy(vr.context) })
	vr.teardown.Push("Vulkan command pool", func() error { return device.DestroyCommandPool(vr.context) })

	// Swapchain
	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, config.PresentMode)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.teardown.Push("Vulkan swapchain", func() error { return sc.Destroy(vr.context) })

	rp, err := RenderpassCreate(vr.context)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp
	vr.teardown.Push("Vulkan renderpass", func() error { return rp.Destroy(vr.context) })

	// Swapchain framebuffers.
	if err := vr.createFramebuffers(); err != nil {
		return err
	}

	if err := vr.createPipeline(config.Shaders); err != nil {
		return err
	}

	buffers, err := AllocateCommandBuffers(vr.context, device.GraphicsCommandPool, sc.Framebuffers)
	if err != nil {
		return err
	}
	vr.context.GraphicsCommandBuffers = buffers
	vr.teardown.Push("Vulkan command buffers", func() error {
		err := FreeCommandBuffers(vr.context, device.GraphicsCommandPool, buffers)
		vr.context.GraphicsCommandBuffers = nil
		return err
	})

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) Device() frames.Device {
	return vr.context
}

func (vr *VulkanRenderer) CommandBuffers() []renderer.CommandBuffer {
	out := make([]renderer.CommandBuffer, len(vr.context.GraphicsCommandBuffers))
	for i, cb := range vr.context.GraphicsCommandBuffers {
		out[i] = cb
	}
	return out
}

// Shutdown destroys in the opposite order of creation. The device is
// drained first so nothing is released while still in use.
func (vr *VulkanRenderer) Shutdown() error {
	if err := vr.context.WaitIdle(); err != nil {
		core.LogError("failed to wait for device idle: %s", err)
	}
	if failed := vr.teardown.Release(); failed > 0 {
		return fmt.Errorf("%d Vulkan object(s) failed to release", failed)
	}
	return nil
}

func (vr *VulkanRenderer) createInstance(config metadata.RendererBackendConfig) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("No Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vr.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredLayers []string
	if config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = []string{validationLayerName}
		if err := checkValidationLayers(requiredLayers); err != nil {
			return err
		}
	}

	core.LogDebug("Required extensions:")
	for _, name := range requiredExtensions {
		core.LogDebug(name)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		return resultError("vkCreateInstance", res, core.ErrInitialization)
	}
	vr.teardown.Push("Vulkan instance", func() error {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
		return nil
	})
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInitialization, err)
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var availableCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res, core.ErrInitialization)
	}
	available := make([]vk.LayerProperties, availableCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res, core.ErrInitialization)
	}

	names := make([]string, len(available))
	for i := range available {
		available[i].Deref()
		names[i] = vk.ToString(available[i].LayerName[:])
	}

	// Verify all required layers are available.
	for _, layer := range required {
		core.LogInfo("Searching for layer: %s...", layer)
		found := false
		for _, name := range names {
			if name == layer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s: %w", layer, core.ErrInitialization)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (vr *VulkanRenderer) createDebugger() error {
	core.LogDebug("Creating Vulkan debugger...")

	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, vr.context.Allocator, &dbg); res != vk.Success {
		return resultError("vkCreateDebugReportCallback", res, core.ErrInitialization)
	}
	vr.context.debugMessenger = dbg
	vr.teardown.Push("Vulkan debugger", func() error {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
		return nil
	})

	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (vr *VulkanRenderer) createFramebuffers() error {
	sc := vr.context.Swapchain
	sc.Framebuffers = make([]*VulkanFramebuffer, 0, sc.ImageCount)
	for i := 0; i < int(sc.ImageCount); i++ {
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, sc.Extent.Width, sc.Extent.Height, []vk.ImageView{sc.Views[i]})
		if err != nil {
			return fmt.Errorf("framebuffer %d: %w", i, err)
		}
		sc.Framebuffers = append(sc.Framebuffers, fb)
		vr.teardown.Push(fmt.Sprintf("Vulkan framebuffer %d", i), func() error { return fb.Destroy(vr.context) })
	}
	return nil
}

// createPipeline builds the fixed pipeline. The shader modules are only
// needed while the pipeline is created.
func (vr *VulkanRenderer) createPipeline(shaders metadata.ShaderSet) error {
	vertex, err := NewShaderStage(vr.context, shaders.Vertex, metadata.ShaderStageVertex)
	if err != nil {
		return err
	}
	defer vertex.Destroy(vr.context)

	fragment, err := NewShaderStage(vr.context, shaders.Fragment, metadata.ShaderStageFragment)
	if err != nil {
		return err
	}
	defer fragment.Destroy(vr.context)

	extent := vr.context.Swapchain.Extent
	pipeline, err := NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass: vr.context.MainRenderpass,
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertex.ShaderStageCreateInfo,
			fragment.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X:        0.0,
			Y:        0.0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
	})
	if err != nil {
		return err
	}
	vr.context.Pipeline = pipeline
	vr.teardown.Push("Vulkan pipeline", func() error { return pipeline.Destroy(vr.context) })
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	severity := core.DiagnosticVerbose
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		severity = core.DiagnosticError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		severity = core.DiagnosticWarning
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		severity = core.DiagnosticPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		severity = core.DiagnosticInfo
	}
	core.LogDiagnostic(severity, pLayerPrefix, fmt.Sprintf("Code %d : %s", messageCode, pMessage))
	// Never abort the call that triggered the message.
	return vk.Bool32(vk.False)
}
