package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
)

type VulkanSemaphore struct {
	Handle  vk.Semaphore
	context *VulkanContext
}

func NewSemaphore(context *VulkanContext) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res, core.ErrResourceCreation)
	}
	return &VulkanSemaphore{Handle: handle, context: context}, nil
}

func (vs *VulkanSemaphore) Destroy() error {
	if vs.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSemaphore
	}
	return nil
}
