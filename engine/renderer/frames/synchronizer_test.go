package frames_test

import (
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames"
	"github.com/spaghettifunk/vkplayground/engine/renderer/frames/framestest"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func newSynchronizer(t *testing.T, gpu *framestest.GPU, framesInFlight int) *frames.Synchronizer {
	t.Helper()
	s, err := frames.New(gpu, gpu.FrameBuffers(), frames.Config{FramesInFlight: framesInFlight, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func assertNoViolations(t *testing.T, gpu *framestest.GPU) {
	t.Helper()
	for _, v := range gpu.Violations {
		t.Errorf("violation: %s", v)
	}
}

func TestNewDefaults(t *testing.T) {
	gpu := framestest.NewGPU(3)
	s, err := frames.New(gpu, gpu.FrameBuffers(), frames.Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.FramesInFlight(); got != frames.DefaultFramesInFlight {
		t.Errorf("FramesInFlight() = %d, want %d", got, frames.DefaultFramesInFlight)
	}
	if got := s.ImageCount(); got != 3 {
		t.Errorf("ImageCount() = %d, want 3", got)
	}
	if got := len(gpu.EventsOf(framestest.EventCreateFence)); got != 2 {
		t.Errorf("created %d fences, want 2", got)
	}
	if got := len(gpu.EventsOf(framestest.EventCreateSemaphore)); got != 4 {
		t.Errorf("created %d semaphores, want 4", got)
	}
}

func TestNewWithoutCommandBuffers(t *testing.T) {
	gpu := framestest.NewGPU(0)
	_, err := frames.New(gpu, nil, frames.Config{FramesInFlight: 2})
	if !errors.Is(err, core.ErrResourceCreation) {
		t.Fatalf("New() error = %v, want ErrResourceCreation", err)
	}
}

func TestNewReleasesPartialSlots(t *testing.T) {
	gpu := framestest.NewGPU(3)
	gpu.FailFenceCreationAt = 1
	_, err := frames.New(gpu, gpu.FrameBuffers(), frames.Config{FramesInFlight: 2})
	if !errors.Is(err, core.ErrResourceCreation) {
		t.Fatalf("New() error = %v, want ErrResourceCreation", err)
	}

	var destroyed []string
	for _, e := range gpu.EventsOf(framestest.EventDestroy) {
		destroyed = append(destroyed, e.Object)
	}
	want := []string{"semaphore#3", "semaphore#2", "fence#0", "semaphore#1", "semaphore#0"}
	if !reflect.DeepEqual(destroyed, want) {
		t.Errorf("destroyed %v, want %v", destroyed, want)
	}
	assertNoViolations(t, gpu)
}

func TestDrawFrameThrottle(t *testing.T) {
	tests := []struct {
		name           string
		framesInFlight int
		images         int
	}{
		{"single slot", 1, 3},
		{"two slots three images", 2, 3},
		{"two slots two images", 2, 2},
		{"more slots than images", 3, 2},
		{"three slots five images", 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu := framestest.NewGPU(tt.images)
			s := newSynchronizer(t, gpu, tt.framesInFlight)

			for i := 0; i < 50; i++ {
				if s.CurrentSlot() != i%tt.framesInFlight {
					t.Fatalf("frame %d: CurrentSlot() = %d, want %d", i, s.CurrentSlot(), i%tt.framesInFlight)
				}
				info, err := s.DrawFrame()
				if err != nil {
					t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
				}
				if info.Slot != i%tt.framesInFlight {
					t.Errorf("frame %d: Slot = %d, want %d", i, info.Slot, i%tt.framesInFlight)
				}
				if info.Number != uint64(i) {
					t.Errorf("frame %d: Number = %d", i, info.Number)
				}
				if gpu.Pending() > tt.framesInFlight {
					t.Fatalf("frame %d: %d submissions pending, limit %d", i, gpu.Pending(), tt.framesInFlight)
				}
			}
			if gpu.MaxPending() > tt.framesInFlight {
				t.Errorf("MaxPending() = %d, limit %d", gpu.MaxPending(), tt.framesInFlight)
			}
			assertNoViolations(t, gpu)
		})
	}
}

func TestDrawFrameCrossSlotWait(t *testing.T) {
	gpu := framestest.NewGPU(3, 0, 2, 1, 0, 2)
	s := newSynchronizer(t, gpu, 2)

	wantImages := []uint32{0, 2, 1, 0, 2}
	wantWaited := []int{-1, -1, -1, 0, 1}
	for i := range wantImages {
		info, err := s.DrawFrame()
		if err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
		if info.ImageIndex != wantImages[i] {
			t.Errorf("frame %d: ImageIndex = %d, want %d", i, info.ImageIndex, wantImages[i])
		}
		if info.WaitedSlot != wantWaited[i] {
			t.Errorf("frame %d: WaitedSlot = %d, want %d", i, info.WaitedSlot, wantWaited[i])
		}
	}
	assertNoViolations(t, gpu)
}

func TestDrawFrameCrossSlotGuardPreventsAliasing(t *testing.T) {
	// With more slots than images the throttle alone does not cover the
	// image about to be reused.
	gpu := framestest.NewGPU(2)
	s := newSynchronizer(t, gpu, 3)

	wantWaited := []int{-1, -1, 0, 1, 2, 0}
	for i, want := range wantWaited {
		info, err := s.DrawFrame()
		if err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
		if info.WaitedSlot != want {
			t.Errorf("frame %d: WaitedSlot = %d, want %d", i, info.WaitedSlot, want)
		}
	}
	assertNoViolations(t, gpu)
}

func TestDrawFrameStaleAcquire(t *testing.T) {
	gpu := framestest.NewGPU(3)
	gpu.StaleAcquireAt = 2
	s := newSynchronizer(t, gpu, 2)

	for i := 0; i < 2; i++ {
		if _, err := s.DrawFrame(); err != nil {
			t.Fatalf("frame %d: DrawFrame() error = %v", i, err)
		}
	}
	_, err := s.DrawFrame()
	if !errors.Is(err, core.ErrPresentationStale) {
		t.Fatalf("DrawFrame() error = %v, want ErrPresentationStale", err)
	}
	if got := len(gpu.EventsOf(framestest.EventSubmit)); got != 2 {
		t.Errorf("%d submissions, want 2", got)
	}
}

func TestDrawFrameAcquiredIndexOutOfRange(t *testing.T) {
	gpu := framestest.NewGPU(3, 7)
	s, err := frames.New(gpu, gpu.FrameBuffers(), frames.Config{FramesInFlight: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.DrawFrame(); !errors.Is(err, core.ErrPresentationStale) {
		t.Fatalf("DrawFrame() error = %v, want ErrPresentationStale", err)
	}
}

func TestDrawFrameTimeout(t *testing.T) {
	gpu := framestest.NewGPU(3)
	s := newSynchronizer(t, gpu, 1)

	if _, err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	gpu.Hung = true
	_, err := s.DrawFrame()
	if !errors.Is(err, core.ErrSynchronizationTimeout) {
		t.Fatalf("DrawFrame() error = %v, want ErrSynchronizationTimeout", err)
	}
	if got := len(gpu.EventsOf(framestest.EventAcquire)); got != 1 {
		t.Errorf("%d acquisitions, want 1", got)
	}
}

func TestDrawFrameUnrecordedCommandBuffer(t *testing.T) {
	gpu := framestest.NewGPU(2)
	buffers := []frames.CommandBuffer{framestest.NewCommandBuffer(0), framestest.NewCommandBuffer(1)}
	s, err := frames.New(gpu, buffers, frames.Config{FramesInFlight: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.DrawFrame(); !errors.Is(err, core.ErrCommandRecording) {
		t.Fatalf("DrawFrame() error = %v, want ErrCommandRecording", err)
	}
	if got := len(gpu.EventsOf(framestest.EventSubmit)); got != 0 {
		t.Errorf("%d submissions, want 0", got)
	}
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	gpu := framestest.NewGPU(3)
	s := newSynchronizer(t, gpu, 2)
	window := &framestest.Window{Frames: 4}

	var seen []frames.FrameInfo
	if err := s.Run(context.Background(), window, func(info frames.FrameInfo) { seen = append(seen, info) }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(seen) != 4 {
		t.Errorf("%d frames drawn, want 4", len(seen))
	}
	if got := len(gpu.EventsOf(framestest.EventPresent)); got != 4 {
		t.Errorf("%d presentations, want 4", got)
	}
	if last := gpu.Events[len(gpu.Events)-1]; last.Kind != framestest.EventWaitIdle {
		t.Errorf("last event = %s, want %s", last, framestest.EventWaitIdle)
	}
	if gpu.Pending() != 0 {
		t.Errorf("%d submissions pending after Run", gpu.Pending())
	}
}

func TestRunStopsOnStalePresent(t *testing.T) {
	gpu := framestest.NewGPU(3)
	gpu.StalePresentAt = 3
	s := newSynchronizer(t, gpu, 2)

	err := s.Run(context.Background(), &framestest.Window{Frames: 100}, nil)
	if !errors.Is(err, core.ErrPresentationStale) {
		t.Fatalf("Run() error = %v, want ErrPresentationStale", err)
	}
	if got := len(gpu.EventsOf(framestest.EventSubmit)); got != 4 {
		t.Errorf("%d submissions, want 4", got)
	}
	if last := gpu.Events[len(gpu.Events)-1]; last.Kind != framestest.EventWaitIdle {
		t.Errorf("last event = %s, want %s", last, framestest.EventWaitIdle)
	}
}

func TestShutdownDrainsBeforeDestroy(t *testing.T) {
	gpu := framestest.NewGPU(3)
	s := newSynchronizer(t, gpu, 2)

	var created []string
	for _, e := range gpu.Events {
		if e.Kind == framestest.EventCreateFence || e.Kind == framestest.EventCreateSemaphore {
			created = append(created, e.Object)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := s.Run(ctx, &framestest.Window{Frames: 100}, func(info frames.FrameInfo) {
		if info.Number == 4 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	s.Destroy()

	idleAt, firstDestroy := -1, -1
	var destroyed []string
	for i, e := range gpu.Events {
		switch e.Kind {
		case framestest.EventWaitIdle:
			idleAt = i
		case framestest.EventDestroy:
			if firstDestroy < 0 {
				firstDestroy = i
			}
			destroyed = append(destroyed, e.Object)
		}
	}
	if idleAt < 0 || firstDestroy < idleAt {
		t.Fatalf("wait idle at %d, first destroy at %d", idleAt, firstDestroy)
	}
	if got := len(gpu.EventsOf(framestest.EventPresent)); got != 5 {
		t.Errorf("%d presentations, want 5", got)
	}

	want := make([]string, len(created))
	for i, name := range created {
		want[len(created)-1-i] = name
	}
	if !reflect.DeepEqual(destroyed, want) {
		t.Errorf("destroy order %v, want %v", destroyed, want)
	}
	assertNoViolations(t, gpu)
}
