package raymarch

import (
	"fmt"
	"image/draw"
	"sync"
	"sync/atomic"

	"github.com/gogpu/raymarch/internal/kernel"
	"github.com/gogpu/raymarch/internal/parallel"
)

// SoftwareBackend runs the ray-marching kernel on the CPU.
//
// A dispatch behaves like a GPU dispatch: every workgroup of the grid is
// one job on a worker pool, and each job runs the kernel for its 8x8
// invocations. Dispatch returns once all workgroups have completed.
type SoftwareBackend struct {
	mu      sync.Mutex
	workers int
	pool    *parallel.WorkerPool

	stats softwareCounters
}

type softwareCounters struct {
	buffersCreated atomic.Int64
	imagesCreated  atomic.Int64
	dispatches     atomic.Int64
	liveBuffers    atomic.Int64
	liveImages     atomic.Int64
}

// BackendStats is a snapshot of resource and dispatch counters.
type BackendStats struct {
	SphereBuffersCreated int64
	ImagesCreated        int64
	Dispatches           int64
	LiveSphereBuffers    int64
	LiveImages           int64
}

var _ ComputeBackend = (*SoftwareBackend)(nil)

// NewSoftwareBackend creates a ready-to-use software backend.
func NewSoftwareBackend(opts ...SoftwareOption) *SoftwareBackend {
	b := &SoftwareBackend{}
	for _, opt := range opts {
		opt(b)
	}
	b.pool = parallel.NewWorkerPool(b.workers)
	return b
}

func (b *SoftwareBackend) Name() string { return "software" }

// Init restarts the worker pool if the backend was closed.
func (b *SoftwareBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool == nil || !b.pool.IsRunning() {
		b.pool = parallel.NewWorkerPool(b.workers)
	}
	return nil
}

// Close stops the worker pool.
func (b *SoftwareBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		b.pool.Close()
	}
}

// Stats returns the current counters.
func (b *SoftwareBackend) Stats() BackendStats {
	return BackendStats{
		SphereBuffersCreated: b.stats.buffersCreated.Load(),
		ImagesCreated:        b.stats.imagesCreated.Load(),
		Dispatches:           b.stats.dispatches.Load(),
		LiveSphereBuffers:    b.stats.liveBuffers.Load(),
		LiveImages:           b.stats.liveImages.Load(),
	}
}

func (b *SoftwareBackend) CreateSphereBuffer(spheres []Sphere) (SphereBuffer, error) {
	buf := &softwareSphereBuffer{owner: b, spheres: toKernelSpheres(spheres)}
	b.stats.buffersCreated.Add(1)
	b.stats.liveBuffers.Add(1)
	Logger().Debug("software: sphere buffer created", "count", len(spheres), "bytes", len(spheres)*SphereStride)
	return buf, nil
}

func (b *SoftwareBackend) CreateOutputImage(size Size) (OutputImage, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidViewport, size)
	}
	img := &softwareImage{
		owner:  b,
		size:   size,
		texels: make([]float32, size.Width*size.Height*4),
	}
	b.stats.imagesCreated.Add(1)
	b.stats.liveImages.Add(1)
	Logger().Debug("software: output image created", "size", size.String())
	return img, nil
}

func (b *SoftwareBackend) Dispatch(params FrameParams, spheres SphereBuffer, out OutputImage, groupsX, groupsY uint32) error {
	sb, err := b.sphereBuffer(spheres)
	if err != nil {
		return err
	}
	img, err := b.image(out)
	if err != nil {
		return err
	}
	if params.Size != img.size {
		return fmt.Errorf("raymarch: dispatch size %v does not match output image %v", params.Size, img.size)
	}

	u := params.Uniforms()
	u.SphereCount = uint32(min(params.SphereCount, len(sb.spheres))) //nolint:gosec // non-negative

	b.mu.Lock()
	pool := b.pool
	b.mu.Unlock()

	parallel.Dispatch(pool, groupsX, groupsY, func(gx, gy uint32) {
		kernel.Dispatch(&u, sb.spheres, img.texels, gx, gy)
	})
	b.stats.dispatches.Add(1)
	return nil
}

func (b *SoftwareBackend) Blit(out OutputImage, dst draw.Image) error {
	img, err := b.image(out)
	if err != nil {
		return err
	}
	Composite(dst, ToRGBA(img.texels, img.size))
	return nil
}

// Texels returns a copy of the image's RGBA32F contents. It is intended
// for tests and offline tools.
func (b *SoftwareBackend) Texels(out OutputImage) ([]float32, error) {
	img, err := b.image(out)
	if err != nil {
		return nil, err
	}
	return append([]float32(nil), img.texels...), nil
}

func (b *SoftwareBackend) sphereBuffer(r SphereBuffer) (*softwareSphereBuffer, error) {
	sb, ok := r.(*softwareSphereBuffer)
	if !ok || sb.owner != b {
		return nil, ErrForeignResource
	}
	if sb.Released() {
		return nil, ErrResourceReleased
	}
	return sb, nil
}

func (b *SoftwareBackend) image(r OutputImage) (*softwareImage, error) {
	img, ok := r.(*softwareImage)
	if !ok || img.owner != b {
		return nil, ErrForeignResource
	}
	if img.Released() {
		return nil, ErrResourceReleased
	}
	return img, nil
}

type softwareSphereBuffer struct {
	owner    *SoftwareBackend
	spheres  []kernel.Sphere
	released atomic.Bool
}

func (s *softwareSphereBuffer) Count() int { return len(s.spheres) }

func (s *softwareSphereBuffer) Released() bool { return s.released.Load() }

func (s *softwareSphereBuffer) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.spheres = nil
		s.owner.stats.liveBuffers.Add(-1)
	}
}

type softwareImage struct {
	owner    *SoftwareBackend
	size     Size
	texels   []float32
	released atomic.Bool
}

func (i *softwareImage) Size() Size { return i.size }

func (i *softwareImage) Released() bool { return i.released.Load() }

func (i *softwareImage) Release() {
	if i.released.CompareAndSwap(false, true) {
		i.texels = nil
		i.owner.stats.liveImages.Add(-1)
	}
}
