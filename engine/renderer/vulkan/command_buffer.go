package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandBuffer is the primary command buffer bound to one swapchain
// image and its framebuffer.
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	context     *VulkanContext
	framebuffer *VulkanFramebuffer
}

// AllocateCommandBuffers allocates one primary buffer per framebuffer.
func AllocateCommandBuffers(context *VulkanContext, pool vk.CommandPool, framebuffers []*VulkanFramebuffer) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(framebuffers)),
	}

	handles := make([]vk.CommandBuffer, len(framebuffers))
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, resultError("vkAllocateCommandBuffers", res, core.ErrResourceCreation)
	}

	buffers := make([]*VulkanCommandBuffer, len(handles))
	for i, h := range handles {
		buffers[i] = &VulkanCommandBuffer{
			Handle:      h,
			State:       COMMAND_BUFFER_STATE_READY,
			context:     context,
			framebuffer: framebuffers[i],
		}
	}
	core.LogDebug("Vulkan command buffers created.")
	return buffers, nil
}

func FreeCommandBuffers(context *VulkanContext, pool vk.CommandPool, buffers []*VulkanCommandBuffer) error {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b.Handle != nil {
			handles = append(handles, b.Handle)
		}
		b.Handle = nil
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) > 0 {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, uint32(len(handles)), handles)
	}
	return nil
}

// Begin starts a recording meant to be replayed every time the image comes
// round. The buffer is never pending twice at once, so it is not marked for
// simultaneous use.
func (v *VulkanCommandBuffer) Begin() error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		return fmt.Errorf("command buffer cannot begin recording in state %d", v.State)
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res, core.ErrCommandRecording)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) BeginRenderPass(clear metadata.ClearColor) {
	v.context.MainRenderpass.Begin(v, v.framebuffer.Handle, clear)
}

func (v *VulkanCommandBuffer) BindPipeline() {
	v.context.Pipeline.Bind(v)
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(v.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	v.context.MainRenderpass.End(v)
}

func (v *VulkanCommandBuffer) End() error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return fmt.Errorf("command buffer cannot end recording in state %d", v.State)
	}
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res, core.ErrCommandRecording)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) Executable() bool {
	return v.State == COMMAND_BUFFER_STATE_RECORDING_ENDED || v.State == COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) MarkSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}
