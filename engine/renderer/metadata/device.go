package metadata

import (
	"fmt"

	"github.com/spaghettifunk/vkplayground/engine/core"
)

// DeviceType values match VkPhysicalDeviceType.
type DeviceType uint32

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "Integrated"
	case DeviceTypeDiscreteGPU:
		return "Discrete"
	case DeviceTypeVirtualGPU:
		return "Virtual"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

type QueueFamily struct {
	Index    uint32
	Graphics bool
	Present  bool
}

// DeviceCandidate is the capability summary of one physical device.
type DeviceCandidate struct {
	Name          string
	Type          DeviceType
	QueueFamilies []QueueFamily
	Extensions    []string
	Swapchain     SwapchainSupport
}

type DeviceRequirements struct {
	Extensions     []string
	PreferDiscrete bool
}

// UsableQueueFamily returns the first family that can both submit graphics
// work and present to the surface.
func (d *DeviceCandidate) UsableQueueFamily() (uint32, bool) {
	for _, qf := range d.QueueFamilies {
		if qf.Graphics && qf.Present {
			return qf.Index, true
		}
	}
	return 0, false
}

func (d *DeviceCandidate) hasExtension(name string) bool {
	for _, e := range d.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// MeetsRequirements reports whether d is adequate, and why not when it isn't.
func (d *DeviceCandidate) MeetsRequirements(req DeviceRequirements) (bool, string) {
	if _, ok := d.UsableQueueFamily(); !ok {
		return false, "no queue family supports both graphics and present"
	}
	for _, ext := range req.Extensions {
		if !d.hasExtension(ext) {
			return false, fmt.Sprintf("required extension not found: '%s'", ext)
		}
	}
	if len(d.Swapchain.Formats) == 0 || len(d.Swapchain.PresentModes) == 0 {
		return false, "required swapchain support not present"
	}
	return true, ""
}

// SelectDevice returns the index of the chosen candidate and the queue
// family used for both submission and presentation.
func SelectDevice(candidates []DeviceCandidate, req DeviceRequirements) (int, uint32, error) {
	selected := -1
	for i := range candidates {
		ok, reason := candidates[i].MeetsRequirements(req)
		if !ok {
			core.LogInfo("Skipping device '%s': %s.", candidates[i].Name, reason)
			continue
		}
		if selected < 0 {
			selected = i
		}
		if !req.PreferDiscrete || candidates[i].Type == DeviceTypeDiscreteGPU {
			selected = i
			break
		}
	}
	if selected < 0 {
		return -1, 0, fmt.Errorf("%d device(s) inspected: %w", len(candidates), core.ErrNoSuitableDevice)
	}
	family, _ := candidates[selected].UsableQueueFamily()
	return selected, family, nil
}
