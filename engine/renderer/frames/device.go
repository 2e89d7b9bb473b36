package frames

import "time"

// Fence is a binary completion signal set by the GPU and observable by the
// host. A fence wait that exceeds its timeout reports
// core.ErrSynchronizationTimeout.
type Fence interface {
	Wait(timeout time.Duration) error
	Reset() error
	Destroy() error
}

// Semaphore is a GPU side binary signal. The host never polls it.
type Semaphore interface {
	Destroy() error
}

// CommandBuffer is a pre-recorded command sequence for one presentable image.
type CommandBuffer interface {
	// Executable reports whether recording has ended and the buffer may be submitted.
	Executable() bool
	MarkSubmitted()
}

type PipelineStage uint32

// Matches VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT.
const PipelineStageColorAttachmentOutput PipelineStage = 0x00000400

type SubmitInfo struct {
	Commands CommandBuffer
	// Wait is waited on by the GPU only once WaitStage is reached.
	Wait      Semaphore
	WaitStage PipelineStage
	// Signal is signaled when the submitted work finishes.
	Signal Semaphore
	// Fence becomes signaled once the submitted work fully completes.
	Fence Fence
}

// Device is the part of the device session and presentation surface the
// synchronizer talks to. All calls happen from the goroutine running the
// frame loop.
type Device interface {
	NewFence(signaled bool) (Fence, error)
	NewSemaphore() (Semaphore, error)
	// AcquireNextImage returns the index of the next presentable image and
	// arranges for signal to fire when the image becomes usable. A surface
	// that no longer matches the swapchain reports core.ErrPresentationStale.
	AcquireNextImage(timeout time.Duration, signal Semaphore) (uint32, error)
	Submit(info SubmitInfo) error
	// Present queues imageIndex for display once wait is signaled.
	Present(imageIndex uint32, wait Semaphore) error
	// WaitIdle blocks until the queue has no outstanding work.
	WaitIdle() error
}

// Window is polled between frames. PumpMessages processes pending window
// events and returns false once a close has been requested.
type Window interface {
	PumpMessages() bool
}
