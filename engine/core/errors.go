package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// Environment errors. Reported before any GPU resource exists.
	ErrNoSuitableGpu = errors.New("no suitable gpu found")

	// An unexpected result from a Vulkan call. Always fatal.
	ErrGpuCall = errors.New("vulkan call failed")

	// The surface changed and the swapchain must be recreated.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")

	// Asset errors, recoverable at the creation call site.
	ErrInvalidShader     = errors.New("invalid shader binary")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrCubemapFaceSize   = errors.New("cubemap faces have mismatched dimensions")
	ErrInvalidFile       = errors.New("invalid file")

	// Capacity errors. Fatal.
	ErrBindlessCapacity = errors.New("bindless image table is full")

	// A handle that does not resolve to a live resource.
	ErrInvalidHandle = errors.New("invalid resource handle")
)

// IsFatal reports whether err belongs to the classes of errors the engine
// cannot recover from without restarting.
func IsFatal(err error) bool {
	return errors.IsAny(err, ErrNoSuitableGpu, ErrGpuCall, ErrBindlessCapacity, ErrInvalidHandle)
}
