package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	Config      metadata.SwapchainConfig
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

// SwapchainCreate creates a swapchain for the surface with the given
// preferred present mode. The surface is never rebuilt afterwards.
func SwapchainCreate(context *VulkanContext, width, height uint32, preferred metadata.PresentMode) (*VulkanSwapchain, error) {
	config, err := metadata.ChooseSwapchainConfig(
		context.Device.SwapchainSupport,
		metadata.Extent2D{Width: width, Height: height},
		preferred,
	)
	if err != nil {
		return nil, err
	}
	if config.PresentMode != preferred {
		core.LogWarn("Present mode %s is not supported, falling back to %s.", preferred, config.PresentMode)
	}

	swapchain := &VulkanSwapchain{
		Config: config,
		ImageFormat: vk.SurfaceFormat{
			Format:     vk.Format(config.Format.Format),
			ColorSpace: vk.ColorSpace(config.Format.ColorSpace),
		},
		Extent: vk.Extent2D{Width: config.Extent.Width, Height: config.Extent.Height},
	}

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(context.Device.PhysicalDevice, context.Surface, &caps); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res, core.ErrSwapchainCreation)
	}
	caps.Deref()

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    config.ImageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share one queue family.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(config.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, resultError("vkCreateSwapchain", res, core.ErrSwapchainCreation)
	}
	swapchain.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, resultError("vkGetSwapchainImages", res, core.ErrSwapchainCreation)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, resultError("vkGetSwapchainImages", res, core.ErrSwapchainCreation)
	}

	// Views
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]); res != vk.Success {
			swapchain.Destroy(context)
			return nil, resultError("vkCreateImageView", res, core.ErrSwapchainCreation)
		}
	}

	core.LogInfo("Swapchain created: %d image(s), %dx%d, present mode %s.",
		swapchain.ImageCount, config.Extent.Width, config.Extent.Height, config.PresentMode)
	return swapchain, nil
}

// AcquireNextImageIndex asks the presentation engine for the next image.
// An out of date surface is reported as core.ErrPresentationStale.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success:
		return imageIndex, nil
	case vk.Suboptimal:
		core.LogDebug("Swapchain is suboptimal for the surface, image %d still usable.", imageIndex)
		return imageIndex, nil
	default:
		return 0, resultError("vkAcquireNextImageKHR", result, core.ErrPresentationStale)
	}
}

// Present returns the image to the swapchain for presentation.
func (vs *VulkanSwapchain) Present(presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
		PResults:           nil,
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		// The surface is only rebuilt on out of date, which is fatal here.
		return nil
	default:
		return resultError("vkQueuePresentKHR", result, core.ErrPresentationStale)
	}
}

func (vs *VulkanSwapchain) Destroy(context *VulkanContext) error {
	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
			vs.Views[i] = vk.NullImageView
		}
	}
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
	return nil
}
