package metadata

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/vkplayground/engine/core"
)

func TestChooseExtent(t *testing.T) {
	bounds := SurfaceCapabilities{
		MinImageExtent: Extent2D{Width: 100, Height: 100},
		MaxImageExtent: Extent2D{Width: 1920, Height: 1080},
	}
	undefined := Extent2D{Width: UndefinedExtentSize, Height: UndefinedExtentSize}

	tests := []struct {
		name    string
		current Extent2D
		window  Extent2D
		want    Extent2D
	}{
		{"current extent wins", Extent2D{Width: 800, Height: 600}, Extent2D{Width: 1280, Height: 720}, Extent2D{Width: 800, Height: 600}},
		{"window size inside bounds", undefined, Extent2D{Width: 1280, Height: 720}, Extent2D{Width: 1280, Height: 720}},
		{"clamped to max", undefined, Extent2D{Width: 4000, Height: 3000}, Extent2D{Width: 1920, Height: 1080}},
		{"clamped to min", undefined, Extent2D{Width: 10, Height: 5000}, Extent2D{Width: 100, Height: 1080}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := bounds
			caps.CurrentExtent = tt.current
			if got := ChooseExtent(caps, tt.window); got != tt.want {
				t.Errorf("ChooseExtent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{min: 2, max: 0, want: 3},
		{min: 2, max: 8, want: 3},
		{min: 3, max: 3, want: 3},
		{min: 1, max: 2, want: 2},
	}
	for _, tt := range tests {
		caps := SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := ChooseImageCount(caps); got != tt.want {
			t.Errorf("ChooseImageCount(min=%d, max=%d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := SurfaceFormat{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear}
	bgraSrgb := SurfaceFormat{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear}
	rgbaSrgb := SurfaceFormat{Format: FormatR8G8B8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear}
	wrongSpace := SurfaceFormat{Format: FormatB8G8R8A8Srgb, ColorSpace: 1000104002}

	tests := []struct {
		name    string
		formats []SurfaceFormat
		want    SurfaceFormat
		ok      bool
	}{
		{"empty", nil, SurfaceFormat{}, false},
		{"first srgb", []SurfaceFormat{unorm, rgbaSrgb, bgraSrgb}, rgbaSrgb, true},
		{"bgra srgb", []SurfaceFormat{unorm, bgraSrgb}, bgraSrgb, true},
		{"color space must match", []SurfaceFormat{wrongSpace, unorm}, wrongSpace, true},
		{"fallback to first", []SurfaceFormat{unorm}, unorm, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChooseSurfaceFormat(tt.formats)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ChooseSurfaceFormat() = (%+v, %v), want (%+v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name      string
		modes     []PresentMode
		preferred PresentMode
		want      PresentMode
	}{
		{"preferred offered", []PresentMode{PresentModeFifo, PresentModeImmediate}, PresentModeImmediate, PresentModeImmediate},
		{"fallback to fifo", []PresentMode{PresentModeFifo, PresentModeMailbox}, PresentModeImmediate, PresentModeFifo},
		{"mailbox", []PresentMode{PresentModeMailbox, PresentModeFifo}, PresentModeMailbox, PresentModeMailbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes, tt.preferred); got != tt.want {
				t.Errorf("ChoosePresentMode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChooseSwapchainConfigWithoutFormats(t *testing.T) {
	_, err := ChooseSwapchainConfig(SwapchainSupport{PresentModes: []PresentMode{PresentModeFifo}}, Extent2D{Width: 1, Height: 1}, PresentModeFifo)
	if !errors.Is(err, core.ErrSwapchainCreation) {
		t.Fatalf("error = %v, want ErrSwapchainCreation", err)
	}
}

func TestParsePresentMode(t *testing.T) {
	for _, m := range []PresentMode{PresentModeImmediate, PresentModeMailbox, PresentModeFifo, PresentModeFifoRelaxed} {
		got, err := ParsePresentMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParsePresentMode(%q) = (%s, %v)", m.String(), got, err)
		}
	}
	if _, err := ParsePresentMode("vsync"); err == nil {
		t.Error("ParsePresentMode(\"vsync\") succeeded")
	}
}

func TestTriangleProgram(t *testing.T) {
	clear := ClearColor{R: 0.1, A: 1}
	p := TriangleProgram(clear)

	wantOps := []CommandOp{CommandBeginRenderPass, CommandBindPipeline, CommandDraw, CommandEndRenderPass}
	if len(p) != len(wantOps) {
		t.Fatalf("len = %d, want %d", len(p), len(wantOps))
	}
	for i, op := range wantOps {
		if p[i].Op != op {
			t.Errorf("command %d = %s, want %s", i, p[i].Op, op)
		}
	}
	if p[0].Clear != clear {
		t.Errorf("clear = %+v, want %+v", p[0].Clear, clear)
	}
	draw := p[2]
	if draw.VertexCount != 3 || draw.InstanceCount != 1 || draw.FirstVertex != 0 || draw.FirstInstance != 0 {
		t.Errorf("draw = %+v, want draw(3, 1, 0, 0)", draw)
	}
}
