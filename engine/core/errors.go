package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure in the renderer is fatal; callers match the
// kind with errors.Is to pick an exit message, never to retry.
var (
	ErrInitialization         = errors.New("initialization failed")
	ErrResourceCreation       = errors.New("resource creation failed")
	ErrSynchronizationTimeout = errors.New("synchronization wait timed out")
	ErrPresentationStale      = errors.New("presentation surface is out of date")
)

var (
	ErrNoSuitableDevice  = fmt.Errorf("no suitable device: %w", ErrInitialization)
	ErrDeviceCreation    = fmt.Errorf("device creation: %w", ErrInitialization)
	ErrSwapchainCreation = fmt.Errorf("swapchain creation: %w", ErrInitialization)
	ErrCommandRecording  = fmt.Errorf("command recording: %w", ErrResourceCreation)
	ErrDeviceLost        = fmt.Errorf("device lost: %w", ErrSynchronizationTimeout)
)
