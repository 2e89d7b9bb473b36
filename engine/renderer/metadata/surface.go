package metadata

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/vkplayground/engine/core"
	emath "github.com/spaghettifunk/vkplayground/engine/math"
)

// Format mirrors the backend pixel format enumeration. Values match VkFormat.
type Format uint32

const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8Srgb  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50
)

// ColorSpace values match VkColorSpaceKHR.
type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

// PresentMode values match VkPresentModeKHR.
type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo_relaxed"
	default:
		return fmt.Sprintf("present_mode(%d)", uint32(p))
	}
}

// ParsePresentMode accepts the names produced by PresentMode.String.
func ParsePresentMode(s string) (PresentMode, error) {
	for _, m := range []PresentMode{PresentModeImmediate, PresentModeMailbox, PresentModeFifo, PresentModeFifoRelaxed} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown present mode %q", s)
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

// UndefinedExtentSize in CurrentExtent means the surface size is decided
// by the swapchain.
const UndefinedExtentSize uint32 = math.MaxUint32

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
	MinImageCount  uint32
	// Zero means no upper limit.
	MaxImageCount uint32
}

// SwapchainSupport is what the surface reports for one physical device.
type SwapchainSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

/** @brief The resolved swapchain configuration. */
type SwapchainConfig struct {
	Extent      Extent2D
	ImageCount  uint32
	Format      SurfaceFormat
	PresentMode PresentMode
}

func ChooseExtent(caps SurfaceCapabilities, window Extent2D) Extent2D {
	if caps.CurrentExtent.Width != UndefinedExtentSize {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  emath.Clamp(window.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: emath.Clamp(window.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	// A max of 0 means the surface sets no limit.
	return emath.ClampMax(caps.MinImageCount+1, caps.MaxImageCount)
}

// ChooseSurfaceFormat picks the first 8 bit sRGB format, falling back to
// the first reported one.
func ChooseSurfaceFormat(formats []SurfaceFormat) (SurfaceFormat, bool) {
	if len(formats) == 0 {
		return SurfaceFormat{}, false
	}
	for _, f := range formats {
		if (f.Format == FormatB8G8R8A8Srgb || f.Format == FormatR8G8B8A8Srgb) &&
			f.ColorSpace == ColorSpaceSrgbNonlinear {
			return f, true
		}
	}
	return formats[0], true
}

// ChoosePresentMode returns preferred when the surface offers it. FIFO is
// always available and is the fallback.
func ChoosePresentMode(modes []PresentMode, preferred PresentMode) PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return PresentModeFifo
}

func ChooseSwapchainConfig(support SwapchainSupport, window Extent2D, preferred PresentMode) (SwapchainConfig, error) {
	format, ok := ChooseSurfaceFormat(support.Formats)
	if !ok {
		return SwapchainConfig{}, fmt.Errorf("surface reports no formats: %w", core.ErrSwapchainCreation)
	}
	return SwapchainConfig{
		Extent:      ChooseExtent(support.Capabilities, window),
		ImageCount:  ChooseImageCount(support.Capabilities),
		Format:      format,
		PresentMode: ChoosePresentMode(support.PresentModes, preferred),
	}, nil
}
