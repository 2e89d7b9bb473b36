package frames

import (
	"context"
	"fmt"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/core"
)

// DefaultFramesInFlight is the number of frame slots when none is configured.
const DefaultFramesInFlight = 2

// DefaultTimeout bounds every wait on the GPU when none is configured.
const DefaultTimeout = 10 * time.Second

// FrameSlot is one of the rotating logical frames.
type FrameSlot struct {
	Index int
	// InFlight is signaled once the GPU has finished the work this slot last submitted.
	InFlight       Fence
	ImageAvailable Semaphore
	RenderFinished Semaphore
}

// FrameInfo describes one completed iteration of the frame protocol.
type FrameInfo struct {
	Number     uint64
	Slot       int
	ImageIndex uint32
	// WaitedSlot is the slot whose fence guarded the acquired image, or -1
	// when the image carried no in-flight marker.
	WaitedSlot int
}

type Config struct {
	FramesInFlight int
	Timeout        time.Duration
}

// Synchronizer coordinates a ring of frame slots against the presentable
// images of a swapchain.
type Synchronizer struct {
	device   Device
	timeout  time.Duration
	slots    []*FrameSlot
	commands []CommandBuffer

	// imagesInFlight holds, per image, the slot that last rendered into it.
	// The fences belong to the slots, not to this table.
	imagesInFlight []*FrameSlot

	currentSlot int
	frameNumber uint64

	teardown *core.Teardown
}

// New creates the per-slot synchronization objects. Fences start signaled
// so the first wait on every slot returns at once. commands holds one
// recorded buffer per presentable image.
func New(device Device, commands []CommandBuffer, cfg Config) (*Synchronizer, error) {
	if cfg.FramesInFlight <= 0 {
		cfg.FramesInFlight = DefaultFramesInFlight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no command buffers to present: %w", core.ErrResourceCreation)
	}

	s := &Synchronizer{
		device:         device,
		timeout:        cfg.Timeout,
		slots:          make([]*FrameSlot, cfg.FramesInFlight),
		commands:       commands,
		imagesInFlight: make([]*FrameSlot, len(commands)),
		teardown:       core.NewTeardown(),
	}

	for i := range s.slots {
		slot, err := s.createSlot(i)
		if err != nil {
			s.teardown.Release()
			return nil, err
		}
		s.slots[i] = slot
	}

	core.LogDebug("Frame synchronizer created: %d frame slot(s), %d image(s).", len(s.slots), len(s.commands))
	return s, nil
}

func (s *Synchronizer) createSlot(index int) (*FrameSlot, error) {
	slot := &FrameSlot{Index: index}

	sem, err := s.device.NewSemaphore()
	if err != nil {
		return nil, fmt.Errorf("image available semaphore %d: %w: %w", index, core.ErrResourceCreation, err)
	}
	slot.ImageAvailable = sem
	s.teardown.Push(fmt.Sprintf("image available semaphore %d", index), sem.Destroy)

	sem, err = s.device.NewSemaphore()
	if err != nil {
		return nil, fmt.Errorf("render finished semaphore %d: %w: %w", index, core.ErrResourceCreation, err)
	}
	slot.RenderFinished = sem
	s.teardown.Push(fmt.Sprintf("render finished semaphore %d", index), sem.Destroy)

	fence, err := s.device.NewFence(true)
	if err != nil {
		return nil, fmt.Errorf("in-flight fence %d: %w: %w", index, core.ErrResourceCreation, err)
	}
	slot.InFlight = fence
	s.teardown.Push(fmt.Sprintf("in-flight fence %d", index), fence.Destroy)

	return slot, nil
}

func (s *Synchronizer) FramesInFlight() int {
	return len(s.slots)
}

func (s *Synchronizer) ImageCount() int {
	return len(s.commands)
}

func (s *Synchronizer) CurrentSlot() int {
	return s.currentSlot
}

// Slot returns frame slot i.
func (s *Synchronizer) Slot(i int) *FrameSlot {
	return s.slots[i]
}

// DrawFrame runs one iteration of the frame protocol.
func (s *Synchronizer) DrawFrame() (FrameInfo, error) {
	slot := s.slots[s.currentSlot]
	info := FrameInfo{Number: s.frameNumber, Slot: slot.Index, WaitedSlot: -1}

	// Wait for the GPU to finish the work this slot submitted last time round.
	if err := slot.InFlight.Wait(s.timeout); err != nil {
		core.LogError("frame %d: in-flight fence wait failure on slot %d: %s", s.frameNumber, slot.Index, err)
		return info, fmt.Errorf("wait for frame slot %d: %w", slot.Index, err)
	}

	imageIndex, err := s.device.AcquireNextImage(s.timeout, slot.ImageAvailable)
	if err != nil {
		core.LogError("frame %d: failed to acquire next image: %s", s.frameNumber, err)
		return info, fmt.Errorf("acquire next image: %w", err)
	}
	if int(imageIndex) >= len(s.commands) {
		return info, fmt.Errorf("acquired image %d out of range [0,%d): %w", imageIndex, len(s.commands), core.ErrPresentationStale)
	}
	info.ImageIndex = imageIndex

	// The image may still be used by a different slot, since slots and
	// images rotate independently.
	if owner := s.imagesInFlight[imageIndex]; owner != nil {
		if err := owner.InFlight.Wait(s.timeout); err != nil {
			core.LogError("frame %d: image %d fence wait failure on slot %d: %s", s.frameNumber, imageIndex, owner.Index, err)
			return info, fmt.Errorf("wait for image %d held by slot %d: %w", imageIndex, owner.Index, err)
		}
		info.WaitedSlot = owner.Index
	}

	// Mark the image as in use by this slot.
	s.imagesInFlight[imageIndex] = slot

	commands := s.commands[imageIndex]
	if !commands.Executable() {
		return info, fmt.Errorf("command buffer for image %d is not recorded: %w", imageIndex, core.ErrCommandRecording)
	}

	if err := slot.InFlight.Reset(); err != nil {
		core.LogError("frame %d: failed to reset fence on slot %d: %s", s.frameNumber, slot.Index, err)
		return info, fmt.Errorf("reset fence of slot %d: %w", slot.Index, err)
	}

	if err := s.device.Submit(SubmitInfo{
		Commands:  commands,
		Wait:      slot.ImageAvailable,
		WaitStage: PipelineStageColorAttachmentOutput,
		Signal:    slot.RenderFinished,
		Fence:     slot.InFlight,
	}); err != nil {
		core.LogError("frame %d: queue submission failed: %s", s.frameNumber, err)
		return info, fmt.Errorf("submit image %d: %w", imageIndex, err)
	}
	commands.MarkSubmitted()

	// Give the image back to the swapchain.
	if err := s.device.Present(imageIndex, slot.RenderFinished); err != nil {
		core.LogError("frame %d: failed to present image %d: %s", s.frameNumber, imageIndex, err)
		return info, fmt.Errorf("present image %d: %w", imageIndex, err)
	}

	s.currentSlot = (s.currentSlot + 1) % len(s.slots)
	s.frameNumber++
	return info, nil
}

// Run draws frames until the window asks to close, ctx is cancelled or a
// frame fails. Stop requests are only honored between frames. Whatever the
// outcome, Run returns only after the device has gone idle.
func (s *Synchronizer) Run(ctx context.Context, window Window, onFrame func(FrameInfo)) (err error) {
	defer func() {
		if idleErr := s.device.WaitIdle(); idleErr != nil {
			core.LogError("failed to wait for device idle: %s", idleErr)
			if err == nil {
				err = fmt.Errorf("wait idle: %w", idleErr)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			core.LogInfo("Stop requested, leaving the frame loop after %d frame(s).", s.frameNumber)
			return nil
		default:
		}
		if !window.PumpMessages() {
			core.LogInfo("Window close requested, leaving the frame loop after %d frame(s).", s.frameNumber)
			return nil
		}

		info, err := s.DrawFrame()
		if err != nil {
			return err
		}
		if onFrame != nil {
			onFrame(info)
		}
	}
}

// Destroy releases every synchronization object in reverse creation order.
// The caller must make sure the device is idle first.
func (s *Synchronizer) Destroy() {
	s.teardown.Release()
	s.imagesInFlight = nil
	s.slots = nil
}
