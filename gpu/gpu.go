//go:build !nogpu

// Package gpu registers the GPU compute backend for raymarch.
//
// Import this package to render on the GPU through wgpu/hal compute
// shaders. If GPU initialization fails (no Vulkan device available), the
// registration is skipped with a warning and raymarch.DefaultBackend falls
// back to the software backend.
//
// Usage:
//
//	import _ "github.com/gogpu/raymarch/gpu" // enable GPU rendering
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/raymarch"
	gpuimpl "github.com/gogpu/raymarch/internal/gpu"
)

func init() {
	if err := raymarch.RegisterBackend(gpuimpl.New()); err != nil {
		raymarch.Logger().Warn("GPU backend not available", "err", err)
	}
}

// NewBackend returns a new, uninitialized GPU backend for callers that
// manage backends explicitly instead of through the registry.
func NewBackend() raymarch.ComputeBackend {
	return gpuimpl.New()
}

// SetDeviceProvider configures the registered GPU backend to use a shared
// GPU device from an external provider (e.g., gogpu) instead of its own.
//
// The provider must also expose HalDevice() and HalQueue() for direct HAL
// access. Call this before the first frame.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	return raymarch.SetBackendDeviceProvider(provider)
}
