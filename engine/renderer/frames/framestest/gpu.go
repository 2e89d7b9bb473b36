// Package framestest provides a simulated GPU for exercising the frame
// protocol without a graphics driver.
//
// Submitted work completes lazily: it stays pending until its fence is
// waited on or the device is drained. The simulator records every call so
// tests can assert on ordering, and flags misuse such as rendering into an
// image that a pending submission still targets.
package framestest

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
)

// Event kinds written to the GPU log.
const (
	EventCreateFence     = "create_fence"
	EventCreateSemaphore = "create_semaphore"
	EventWait            = "wait"
	EventReset           = "reset"
	EventAcquire         = "acquire"
	EventSubmit          = "submit"
	EventPresent         = "present"
	EventWaitIdle        = "wait_idle"
	EventDestroy         = "destroy"
)

type Event struct {
	Kind string
	// Object names the fence or semaphore involved, e.g. "fence#2".
	Object string
	Image  int
}

func (e Event) String() string {
	if e.Object != "" {
		return e.Kind + " " + e.Object
	}
	if e.Image >= 0 {
		return fmt.Sprintf("%s image %d", e.Kind, e.Image)
	}
	return e.Kind
}

type submission struct {
	image int
	fence *Fence
}

// GPU implements frames.Device.
type GPU struct {
	images int
	order  []uint32
	next   int

	pending    []*submission
	maxPending int
	acquired   map[int]bool

	fences     int
	semaphores int

	// StaleAcquireAt makes the given acquisition (zero based) report a
	// stale surface. Negative disables it.
	StaleAcquireAt int
	// StalePresentAt does the same for presentations.
	StalePresentAt int
	// Hung makes every wait on a pending fence time out.
	Hung bool
	// FailFenceCreationAt fails the given fence creation. Negative disables it.
	FailFenceCreationAt int

	acquires int
	presents int

	Events     []Event
	Violations []string
}

// NewGPU simulates a swapchain with the given number of images. When order
// is empty images are acquired round-robin, otherwise order is cycled.
func NewGPU(images int, order ...uint32) *GPU {
	return &GPU{
		images:              images,
		order:               order,
		acquired:            make(map[int]bool),
		StaleAcquireAt:      -1,
		StalePresentAt:      -1,
		FailFenceCreationAt: -1,
	}
}

// CommandBuffers returns one recorded buffer per image.
func (g *GPU) CommandBuffers() []*CommandBuffer {
	buffers := make([]*CommandBuffer, g.images)
	for i := range buffers {
		buffers[i] = NewCommandBuffer(i)
		buffers[i].Record()
	}
	return buffers
}

// FrameBuffers is CommandBuffers typed for frames.New.
func (g *GPU) FrameBuffers() []frames.CommandBuffer {
	buffers := g.CommandBuffers()
	out := make([]frames.CommandBuffer, len(buffers))
	for i, b := range buffers {
		out[i] = b
	}
	return out
}

func (g *GPU) log(kind, object string, image int) {
	g.Events = append(g.Events, Event{Kind: kind, Object: object, Image: image})
}

func (g *GPU) violation(format string, args ...interface{}) {
	g.Violations = append(g.Violations, fmt.Sprintf(format, args...))
}

// MaxPending is the highest number of submissions that were outstanding at once.
func (g *GPU) MaxPending() int {
	return g.maxPending
}

func (g *GPU) Pending() int {
	return len(g.pending)
}

// EventsOf filters the log by kind.
func (g *GPU) EventsOf(kind string) []Event {
	var out []Event
	for _, e := range g.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (g *GPU) NewFence(signaled bool) (frames.Fence, error) {
	if g.FailFenceCreationAt == g.fences {
		g.fences++
		return nil, fmt.Errorf("simulated fence creation failure")
	}
	f := &Fence{gpu: g, name: fmt.Sprintf("fence#%d", g.fences), signaled: signaled}
	g.fences++
	g.log(EventCreateFence, f.name, -1)
	return f, nil
}

func (g *GPU) NewSemaphore() (frames.Semaphore, error) {
	s := &Semaphore{gpu: g, name: fmt.Sprintf("semaphore#%d", g.semaphores)}
	g.semaphores++
	g.log(EventCreateSemaphore, s.name, -1)
	return s, nil
}

func (g *GPU) AcquireNextImage(timeout time.Duration, signal frames.Semaphore) (uint32, error) {
	n := g.acquires
	g.acquires++
	if n == g.StaleAcquireAt {
		return 0, fmt.Errorf("simulated acquire: %w", core.ErrPresentationStale)
	}

	var index uint32
	if len(g.order) > 0 {
		index = g.order[g.next%len(g.order)]
	} else {
		index = uint32(g.next % g.images)
	}
	g.next++

	sem := signal.(*Semaphore)
	if sem.destroyed {
		g.violation("acquire signals destroyed %s", sem.name)
	}
	if sem.signaled {
		g.violation("acquire signals %s which is still signaled", sem.name)
	}
	sem.signaled = true
	g.acquired[int(index)] = true
	g.log(EventAcquire, "", int(index))
	return index, nil
}

func (g *GPU) Submit(info frames.SubmitInfo) error {
	cb := info.Commands.(*CommandBuffer)
	fence := info.Fence.(*Fence)
	wait := info.Wait.(*Semaphore)
	signal := info.Signal.(*Semaphore)

	if !cb.Executable() {
		g.violation("submit of image %d with a buffer in state %s", cb.Image, cb.state)
	}
	if info.WaitStage != frames.PipelineStageColorAttachmentOutput {
		g.violation("submit of image %d waits at stage %#x", cb.Image, uint32(info.WaitStage))
	}
	if !wait.signaled {
		g.violation("submit of image %d waits on unsignaled %s", cb.Image, wait.name)
	}
	wait.signaled = false
	if signal.signaled {
		g.violation("submit of image %d signals %s which is still signaled", cb.Image, signal.name)
	}
	if fence.signaled || fence.pending != nil {
		g.violation("submit of image %d with %s not reset", cb.Image, fence.name)
	}
	for _, p := range g.pending {
		if p.image == cb.Image {
			g.violation("image %d submitted while %s still renders into it", cb.Image, p.fence.name)
		}
	}

	s := &submission{image: cb.Image, fence: fence}
	fence.pending = s
	// Semaphore ordering is enforced by the queue, the host never observes it.
	signal.signaled = true
	g.pending = append(g.pending, s)
	if len(g.pending) > g.maxPending {
		g.maxPending = len(g.pending)
	}
	g.log(EventSubmit, fence.name, cb.Image)
	return nil
}

func (g *GPU) Present(imageIndex uint32, wait frames.Semaphore) error {
	n := g.presents
	g.presents++
	sem := wait.(*Semaphore)
	if !sem.signaled {
		g.violation("present of image %d waits on unsignaled %s", imageIndex, sem.name)
	}
	sem.signaled = false
	if !g.acquired[int(imageIndex)] {
		g.violation("present of image %d which was not acquired", imageIndex)
	}
	delete(g.acquired, int(imageIndex))
	if n == g.StalePresentAt {
		return fmt.Errorf("simulated present: %w", core.ErrPresentationStale)
	}
	g.log(EventPresent, "", int(imageIndex))
	return nil
}

func (g *GPU) WaitIdle() error {
	for len(g.pending) > 0 {
		g.complete(g.pending[0])
	}
	g.log(EventWaitIdle, "", -1)
	return nil
}

func (g *GPU) complete(s *submission) {
	for i, p := range g.pending {
		if p == s {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
	s.fence.pending = nil
	s.fence.signaled = true
}

type Fence struct {
	gpu       *GPU
	name      string
	signaled  bool
	pending   *submission
	destroyed bool
	// Waits counts every wait issued on this fence.
	Waits int
}

func (f *Fence) Name() string {
	return f.name
}

// Wait completes the pending submission, unless the GPU is hung.
func (f *Fence) Wait(timeout time.Duration) error {
	f.Waits++
	f.gpu.log(EventWait, f.name, -1)
	if f.destroyed {
		f.gpu.violation("wait on destroyed %s", f.name)
	}
	if f.signaled {
		return nil
	}
	if f.pending == nil || f.gpu.Hung {
		return fmt.Errorf("%s not signaled after %s: %w", f.name, timeout, core.ErrSynchronizationTimeout)
	}
	f.gpu.complete(f.pending)
	return nil
}

func (f *Fence) Reset() error {
	if f.pending != nil {
		f.gpu.violation("reset of %s while its work is pending", f.name)
	}
	f.signaled = false
	f.gpu.log(EventReset, f.name, -1)
	return nil
}

func (f *Fence) Destroy() error {
	if f.pending != nil {
		f.gpu.violation("destroy of %s while its work is pending", f.name)
	}
	if f.destroyed {
		f.gpu.violation("%s destroyed twice", f.name)
	}
	f.destroyed = true
	f.gpu.log(EventDestroy, f.name, -1)
	return nil
}

type Semaphore struct {
	gpu       *GPU
	name      string
	signaled  bool
	destroyed bool
}

func (s *Semaphore) Name() string {
	return s.name
}

func (s *Semaphore) Destroy() error {
	if s.destroyed {
		s.gpu.violation("%s destroyed twice", s.name)
	}
	if len(s.gpu.pending) > 0 {
		s.gpu.violation("destroy of %s while %d submission(s) are pending", s.name, len(s.gpu.pending))
	}
	s.destroyed = true
	s.gpu.log(EventDestroy, s.name, -1)
	return nil
}

// Window closes after a fixed number of polls.
type Window struct {
	Frames int
	Polls  int
}

func (w *Window) PumpMessages() bool {
	w.Polls++
	return w.Polls <= w.Frames
}
