package raymarch

import "errors"

// Configuration errors, returned by GenerationParams.Validate and Generate.
var (
	ErrZeroSeed           = errors.New("raymarch: seed must be non-zero")
	ErrInvalidCount       = errors.New("raymarch: sphere count out of range")
	ErrInvalidRadiusRange = errors.New("raymarch: invalid sphere radius range")
	ErrInvalidBounds      = errors.New("raymarch: invalid spawn bounds")
	ErrVolumeTooSmall     = errors.New("raymarch: spawn volume smaller than minimum sphere radius")
)

// Missing-dependency errors, returned by Master.RenderFrame before any
// state is pushed to the compute stage.
var (
	ErrNoBackend = errors.New("raymarch: no compute backend")
	ErrNoCamera  = errors.New("raymarch: no camera")
	ErrNoLight   = errors.New("raymarch: no directional light")
)

// Lifecycle and resource errors.
var (
	ErrNotReady         = errors.New("raymarch: renderer not initialized")
	ErrDisposed         = errors.New("raymarch: renderer torn down")
	ErrResourceReleased = errors.New("raymarch: resource has been released")
	ErrForeignResource  = errors.New("raymarch: resource belongs to another backend")
	ErrInvalidViewport  = errors.New("raymarch: invalid viewport size")
)
