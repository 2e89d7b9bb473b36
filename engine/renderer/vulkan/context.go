package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
)

// VulkanContext holds the device session and the presentation surface. It
// is the frames.Device the frame synchronizer drives.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback
	locks          *VulkanLockPool

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass
	Pipeline       *VulkanPipeline

	// One per swapchain image.
	GraphicsCommandBuffers []*VulkanCommandBuffer
}

func (vc *VulkanContext) NewFence(signaled bool) (frames.Fence, error) {
	return NewFence(vc, signaled)
}

func (vc *VulkanContext) NewSemaphore() (frames.Semaphore, error) {
	return NewSemaphore(vc)
}

func (vc *VulkanContext) AcquireNextImage(timeout time.Duration, signal frames.Semaphore) (uint32, error) {
	sem, ok := signal.(*VulkanSemaphore)
	if !ok {
		return 0, fmt.Errorf("acquire signals a foreign semaphore %T", signal)
	}
	var index uint32
	err := vc.locks.SafeCall(SwapchainManagement, func() error {
		var err error
		index, err = vc.Swapchain.AcquireNextImageIndex(vc, uint64(timeout.Nanoseconds()), sem.Handle)
		return err
	})
	return index, err
}

func (vc *VulkanContext) Submit(info frames.SubmitInfo) error {
	cb, ok := info.Commands.(*VulkanCommandBuffer)
	if !ok {
		return fmt.Errorf("submit of a foreign command buffer %T", info.Commands)
	}
	wait := info.Wait.(*VulkanSemaphore)
	signal := info.Signal.(*VulkanSemaphore)
	fence := info.Fence.(*VulkanFence)

	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
		// Command buffer(s) to be executed.
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		// The semaphore(s) to be signaled when the queue is complete.
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.Handle},
		// Wait semaphore ensures that the operation cannot begin until the image is available.
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(info.WaitStage)},
	}

	return vc.locks.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
			return resultError("vkQueueSubmit", res, core.ErrResourceCreation)
		}
		return nil
	})
}

func (vc *VulkanContext) Present(imageIndex uint32, wait frames.Semaphore) error {
	sem, ok := wait.(*VulkanSemaphore)
	if !ok {
		return fmt.Errorf("present waits on a foreign semaphore %T", wait)
	}
	return vc.locks.SafeCall(QueueManagement, func() error {
		return vc.Swapchain.Present(vc.Device.PresentQueue, sem.Handle, imageIndex)
	})
}

func (vc *VulkanContext) WaitIdle() error {
	if vc.Device == nil || vc.Device.LogicalDevice == nil {
		return nil
	}
	// Waiting on the device counts as access to every queue.
	return vc.locks.SafeCall(QueueManagement, func() error {
		if res := vk.DeviceWaitIdle(vc.Device.LogicalDevice); res != vk.Success {
			return resultError("vkDeviceWaitIdle", res, core.ErrSynchronizationTimeout)
		}
		return nil
	})
}
