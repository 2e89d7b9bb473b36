package renderer

import (
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

// CommandEncoder records the fixed draw program into one command buffer.
type CommandEncoder interface {
	Begin() error
	BeginRenderPass(clear metadata.ClearColor)
	BindPipeline()
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	EndRenderPass()
	End() error
}

type CommandBuffer interface {
	CommandEncoder
	frames.CommandBuffer
}

// RendererBackend owns the device session, the presentation surface and the
// fixed pipeline. Synchronization objects are created through Device and
// belong to the frame synchronizer.
type RendererBackend interface {
	Initialize(config metadata.RendererBackendConfig) error
	Device() frames.Device
	// CommandBuffers returns one buffer per presentable image, in image order.
	CommandBuffers() []CommandBuffer
	Shutdown() error
}
