package raymarch

import (
	"errors"
	"image/draw"
	"sync"
)

// Resource is a backend-owned allocation with deterministic release.
// Release is idempotent; using a released resource yields
// ErrResourceReleased.
type Resource interface {
	Release()
	Released() bool
}

// SphereBuffer is a read-only structured buffer of spheres resident in the
// backend. Its contents are fixed at creation.
type SphereBuffer interface {
	Resource
	Count() int
}

// OutputImage is a writable RGBA32F image resident in the backend.
type OutputImage interface {
	Resource
	Size() Size
}

// ComputeBackend runs the ray-marching kernel.
//
// Two implementations ship with raymarch: the software backend
// (NewSoftwareBackend), and the wgpu backend registered by
//
//	import _ "github.com/gogpu/raymarch/gpu"
type ComputeBackend interface {
	// Name returns the backend name (e.g., "software", "wgpu").
	Name() string

	// Init acquires device resources. Called once before first use.
	Init() error

	// Close releases device resources. Resources created by the backend
	// must be released before Close.
	Close()

	// CreateSphereBuffer uploads spheres into a new buffer. The caller may
	// discard its slice once this returns.
	CreateSphereBuffer(spheres []Sphere) (SphereBuffer, error)

	// CreateOutputImage allocates an image of the given size.
	CreateOutputImage(size Size) (OutputImage, error)

	// Dispatch binds params, spheres and out and runs the kernel over a
	// groupsX x groupsY x 1 grid of workgroups.
	Dispatch(params FrameParams, spheres SphereBuffer, out OutputImage, groupsX, groupsY uint32) error

	// Blit copies out onto dst, scaling if their sizes differ. It waits
	// for any outstanding dispatch writing out.
	Blit(out OutputImage, dst draw.Image) error
}

var (
	backendMu sync.RWMutex
	backend   ComputeBackend
)

// RegisterBackend registers the preferred compute backend.
//
// Only one backend can be registered; later calls replace (and close) the
// previous one. Init is called during registration, and a backend whose
// Init fails is not registered.
//
// Typical usage via blank import in backend packages:
//
//	func init() {
//	    raymarch.RegisterBackend(NewBackend())
//	}
func RegisterBackend(b ComputeBackend) error {
	if b == nil {
		return errors.New("raymarch: backend must not be nil")
	}
	if err := b.Init(); err != nil {
		return err
	}
	propagateLogger(b, Logger())

	backendMu.Lock()
	old := backend
	backend = b
	backendMu.Unlock()
	if old != nil && old != b {
		old.Close()
	}
	Logger().Info("compute backend registered", "backend", b.Name())
	return nil
}

// RegisteredBackend returns the registered backend, or nil if none.
func RegisteredBackend() ComputeBackend {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backend
}

// DefaultBackend returns the registered backend, falling back to a new
// software backend when none is registered.
func DefaultBackend() ComputeBackend {
	if b := RegisteredBackend(); b != nil {
		return b
	}
	Logger().Warn("no compute backend registered, using software")
	return NewSoftwareBackend()
}

// DeviceProviderAware is implemented by backends that can share a GPU
// device with the host instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

// SetBackendDeviceProvider passes a device provider to the registered
// backend. It is a no-op when no backend is registered or the backend
// does not support device sharing.
func SetBackendDeviceProvider(provider any) error {
	b := RegisteredBackend()
	if b == nil {
		return nil
	}
	if dpa, ok := b.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
