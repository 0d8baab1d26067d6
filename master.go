package raymarch

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
)

// State is the lifecycle state of a Master.
type State uint8

const (
	// StateUninitialized is the state of a new Master. Parameters may be
	// changed but nothing is allocated.
	StateUninitialized State = iota

	// StateReady means the sphere buffer exists and frames can be rendered.
	StateReady

	// StateDisposed is terminal: all resources have been released.
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Stats counts the work a Master has done.
type Stats struct {
	Generations      int // scenes generated and uploaded
	ImageRecreations int // output images (re)created
	Frames           int // frames dispatched
	SkippedFrames    int // zero-area frames
}

// Master owns a procedurally generated sphere scene and renders it with a
// compute backend, one frame at a time.
//
// The host drives it explicitly:
//
//	m := raymarch.New(backend, params, raymarch.WithLight(light))
//	if err := m.Initialize(); err != nil { ... }
//	defer m.Teardown()
//	for each frame {
//	    err := m.RenderFrame(cam, viewport, screen)
//	}
//
// Master exclusively owns its sphere buffer and output image. A Master is
// safe for concurrent use, but frames are rendered one at a time.
type Master struct {
	mu sync.Mutex

	backend ComputeBackend
	params  GenerationParams
	light   *DirectionalLight
	state   State

	spheres SphereBuffer
	target  OutputImage

	stats Stats
}

// New creates an uninitialized Master. A nil backend is accepted here and
// reported by RenderFrame.
func New(backend ComputeBackend, params GenerationParams, opts ...Option) *Master {
	m := &Master{backend: backend, params: params}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Master) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Params returns the current generation parameters.
func (m *Master) Params() GenerationParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Stats returns a snapshot of the work counters.
func (m *Master) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// SphereCount returns the number of spheres in the live buffer, or 0 when
// no buffer exists.
func (m *Master) SphereCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spheres == nil {
		return 0
	}
	return m.spheres.Count()
}

// SetLight replaces the directional light.
func (m *Master) SetLight(l *DirectionalLight) {
	m.mu.Lock()
	m.light = l
	m.mu.Unlock()
}

// Initialize generates the scene and uploads it, moving the Master to
// StateReady. Calling it on a ready Master regenerates the scene.
func (m *Master) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisposed {
		return ErrDisposed
	}
	if m.backend == nil {
		return ErrNoBackend
	}
	if err := m.regenerateLocked(); err != nil {
		return err
	}
	m.state = StateReady
	Logger().Info("raymarch: renderer ready", "backend", m.backend.Name(), "spheres", m.params.Count, "seed", m.params.Seed)
	return nil
}

// OnParametersChanged installs new generation parameters. On a ready
// Master the scene is regenerated and the sphere buffer replaced; on an
// uninitialized Master the parameters are only stored.
//
// Invalid parameters are rejected and leave the previous parameters and
// scene in place.
func (m *Master) OnParametersChanged(params GenerationParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateDisposed:
		return ErrDisposed
	case StateUninitialized:
		m.params = params
		return nil
	}

	prev := m.params
	m.params = params
	if err := m.regenerateLocked(); err != nil {
		m.params = prev
		return err
	}
	return nil
}

// regenerateLocked rebuilds the scene from m.params. The old buffer is
// released before the new one is created, so at most one sphere buffer is
// ever live.
func (m *Master) regenerateLocked() error {
	spheres, err := Generate(m.params)
	if err != nil {
		return err
	}
	if m.spheres != nil {
		m.spheres.Release()
		m.spheres = nil
	}
	buf, err := m.backend.CreateSphereBuffer(spheres)
	if err != nil {
		return fmt.Errorf("raymarch: create sphere buffer: %w", err)
	}
	m.spheres = buf
	m.stats.Generations++
	Logger().Debug("raymarch: scene generated", "count", len(spheres), "bytes", len(spheres)*SphereStride)
	return nil
}

// RenderFrame renders one frame of the scene as seen by cam into dst.
//
// The output image is recreated only when viewport differs from the
// previous frame's size. The kernel is dispatched over
// DispatchGroups(viewport) workgroups and the result is composited onto
// the whole of dst, scaled if dst has a different size.
//
// A zero-area viewport renders nothing and returns nil. After every
// frame, including skipped ones, cam.TransformChanged is cleared.
func (m *Master) RenderFrame(cam *Camera, viewport Size, dst draw.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateUninitialized:
		return ErrNotReady
	case StateDisposed:
		return ErrDisposed
	}
	if m.backend == nil {
		return ErrNoBackend
	}
	if cam == nil {
		return ErrNoCamera
	}
	if m.light == nil {
		return ErrNoLight
	}
	if m.spheres == nil {
		return fmt.Errorf("%w: no sphere buffer", ErrNotReady)
	}
	defer func() { cam.TransformChanged = false }()

	if viewport.Empty() {
		m.stats.SkippedFrames++
		return nil
	}

	if err := m.ensureTargetLocked(viewport); err != nil {
		return err
	}

	params, err := NewFrameParams(cam, m.light, viewport, m.spheres.Count())
	if err != nil {
		return err
	}

	gx, gy := DispatchGroups(viewport.Width, viewport.Height)
	if err := m.backend.Dispatch(params, m.spheres, m.target, gx, gy); err != nil {
		return fmt.Errorf("raymarch: dispatch %dx%d: %w", gx, gy, err)
	}
	m.stats.Frames++

	if dst == nil {
		return nil
	}
	if err := m.backend.Blit(m.target, dst); err != nil {
		return fmt.Errorf("raymarch: blit: %w", err)
	}
	return nil
}

// RenderImage is the host pipeline hook: it renders a frame sized to dst
// and leaves the composited image in dst. src is only consulted for its
// size when dst is nil or empty.
func (m *Master) RenderImage(cam *Camera, src image.Image, dst draw.Image) error {
	var viewport Size
	switch {
	case dst != nil && !dst.Bounds().Empty():
		viewport = Size{Width: dst.Bounds().Dx(), Height: dst.Bounds().Dy()}
	case src != nil:
		viewport = Size{Width: src.Bounds().Dx(), Height: src.Bounds().Dy()}
	}
	return m.RenderFrame(cam, viewport, dst)
}

// ensureTargetLocked makes the output image match size, recreating it
// only when the size changed.
func (m *Master) ensureTargetLocked(size Size) error {
	if m.target != nil && !m.target.Released() && m.target.Size() == size {
		return nil
	}
	if m.target != nil {
		m.target.Release()
		m.target = nil
	}
	img, err := m.backend.CreateOutputImage(size)
	if err != nil {
		return fmt.Errorf("raymarch: create output image %v: %w", size, err)
	}
	m.target = img
	m.stats.ImageRecreations++
	Logger().Debug("raymarch: output image recreated", "size", size.String())
	return nil
}

// Teardown releases the output image and then the sphere buffer, and
// moves the Master to StateDisposed. The image goes first so an
// outstanding dispatch finishes before the spheres it reads are freed.
// It is safe to call more than once. The backend itself is not closed.
func (m *Master) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.target != nil {
		m.target.Release()
		m.target = nil
	}
	if m.spheres != nil {
		m.spheres.Release()
		m.spheres = nil
	}
	if m.state != StateDisposed {
		m.state = StateDisposed
		Logger().Info("raymarch: renderer torn down")
	}
}
