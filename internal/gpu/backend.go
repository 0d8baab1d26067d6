//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raymarch"
	"github.com/gogpu/raymarch/internal/kernel"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// BackendName is the name reported by the GPU backend.
const BackendName = "gpu"

// fenceTimeout bounds how long Blit waits for a dispatch to complete.
const fenceTimeout = 5 * time.Second

// ErrNotInitialized is returned when resources are requested before a
// device is available.
var ErrNotInitialized = errors.New("gpu: backend not initialized")

// ErrFenceTimeout is returned when a submitted dispatch does not complete
// within the fence timeout.
var ErrFenceTimeout = errors.New("gpu: timed out waiting for dispatch")

// AdapterInfo describes the GPU the backend runs on.
type AdapterInfo struct {
	Name     string
	Discrete bool
	Shared   bool // device borrowed from a host
}

// Backend implements raymarch.ComputeBackend on a wgpu/hal device.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     AdapterInfo

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	ready          bool
	externalDevice bool // true when using shared device (don't destroy on Close)

	// live output images, so releasing a sphere buffer can drain the
	// submissions that read it.
	images map[*outputImage]struct{}

	dispatches atomic.Int64
	log        atomic.Pointer[slog.Logger]
}

var _ raymarch.ComputeBackend = (*Backend)(nil)

// New returns an uninitialized GPU backend. Call Init (or register it with
// raymarch.RegisterBackend) before use.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return BackendName }

// Init opens a Vulkan device and builds the compute pipeline. It is a
// no-op when the backend is already initialized.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}
	if err := b.initGPU(); err != nil {
		b.releaseDeviceLocked()
		return fmt.Errorf("gpu: init: %w", err)
	}
	return nil
}

// Close destroys the pipeline and, unless the device is shared, the
// device and instance. Resources created by the backend must be released
// before Close.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyPipeline()
	b.releaseDeviceLocked()
}

// Info returns the adapter description. It is zero before Init.
func (b *Backend) Info() AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// Dispatches returns the number of compute passes submitted.
func (b *Backend) Dispatches() int64 {
	return b.dispatches.Load()
}

// SetDeviceProvider switches the backend to a shared GPU device from an
// external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func (b *Backend) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.destroyPipeline()
	b.releaseDeviceLocked()

	b.device = device
	b.queue = queue
	b.externalDevice = true
	b.info = AdapterInfo{Name: "shared", Shared: true}

	if err := b.createPipeline(); err != nil {
		b.ready = false
		return fmt.Errorf("gpu: create pipeline with shared device: %w", err)
	}
	b.ready = true
	b.logger().Info("gpu: switched to shared GPU device")
	return nil
}

// CreateSphereBuffer uploads spheres into a read-only storage buffer.
func (b *Backend) CreateSphereBuffer(spheres []raymarch.Sphere) (raymarch.SphereBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil, ErrNotInitialized
	}

	data := raymarch.EncodeSpheres(spheres)
	size := uint64(max(len(data), kernel.SphereSize)) //nolint:gosec // non-negative
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raymarch_spheres", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sphere buffer: %w", err)
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(buf, 0, data)
	}
	b.logger().Debug("gpu: sphere buffer created", "count", len(spheres), "bytes", size)
	return &sphereBuffer{owner: b, buf: buf, size: size, count: len(spheres)}, nil
}

// CreateOutputImage allocates the RGBA32F storage buffer the kernel writes,
// its staging copy for readback, and the frame's uniform buffer.
func (b *Backend) CreateOutputImage(size raymarch.Size) (raymarch.OutputImage, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%w: %v", raymarch.ErrInvalidViewport, size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil, ErrNotInitialized
	}

	bytes := uint64(size.Width) * uint64(size.Height) * kernel.PixelSize //nolint:gosec // validated positive
	img := &outputImage{owner: b, size: size, bytes: bytes}

	var err error
	img.storage, err = b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raymarch_output", Size: bytes,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create output buffer: %w", err)
	}
	img.staging, err = b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raymarch_staging", Size: bytes,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		img.destroyLocked()
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	img.uniforms, err = b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raymarch_uniforms", Size: kernel.UniformsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		img.destroyLocked()
		return nil, fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	b.trackLocked(img)
	b.logger().Debug("gpu: output image created", "size", size.String(), "bytes", bytes)
	return img, nil
}

// Dispatch writes the frame uniforms, binds the sphere and output buffers
// and submits one compute pass of groupsX x groupsY workgroups. It does
// not wait for completion.
func (b *Backend) Dispatch(params raymarch.FrameParams, spheres raymarch.SphereBuffer, out raymarch.OutputImage, groupsX, groupsY uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return ErrNotInitialized
	}
	sb, err := b.sphereBuffer(spheres)
	if err != nil {
		return err
	}
	img, err := b.image(out)
	if err != nil {
		return err
	}
	if params.Size != img.size {
		return fmt.Errorf("gpu: dispatch size %v does not match output image %v", params.Size, img.size)
	}
	// The previous frame's readback must finish before its buffers are reused.
	if err := img.waitLocked(); err != nil {
		return err
	}

	u := params.Uniforms()
	u.SphereCount = uint32(min(params.SphereCount, sb.count)) //nolint:gosec // non-negative
	b.queue.WriteBuffer(img.uniforms, 0, u.Bytes())

	bg, err := b.bindGroup(img, sb)
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "raymarch_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raymarch"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "raymarch_pass"})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groupsX, groupsY, 1)
	pass.End()
	encoder.CopyBufferToBuffer(img.storage, img.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: img.bytes},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}

	fence, err := b.device.CreateFence()
	if err != nil {
		b.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	if err := b.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		b.device.FreeCommandBuffer(cmd)
		b.device.DestroyFence(fence)
		return fmt.Errorf("gpu: submit: %w", err)
	}
	img.pending = &submission{cmd: cmd, fence: fence}
	b.dispatches.Add(1)
	b.logger().Debug("gpu: dispatched", "groups_x", groupsX, "groups_y", groupsY, "spheres", u.SphereCount)
	return nil
}

// Blit waits for the last dispatch into out, reads the texels back and
// composites them onto dst.
func (b *Backend) Blit(out raymarch.OutputImage, dst draw.Image) error {
	b.mu.Lock()
	img, err := b.image(out)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if err := img.waitLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	readback := make([]byte, img.bytes)
	err = b.queue.ReadBuffer(img.staging, 0, readback)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gpu: readback: %w", err)
	}

	texels := make([]float32, img.size.Width*img.size.Height*4)
	kernel.DecodePixels(readback, texels)
	raymarch.Composite(dst, raymarch.ToRGBA(texels, img.size))
	return nil
}

// bindGroup returns the image's bind group for sb, rebuilding it when the
// sphere buffer changed.
func (b *Backend) bindGroup(img *outputImage, sb *sphereBuffer) (hal.BindGroup, error) {
	if img.bindGroup != nil && img.boundSpheres == sb {
		return img.bindGroup, nil
	}
	if img.bindGroup != nil {
		b.device.DestroyBindGroup(img.bindGroup)
		img.bindGroup = nil
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "raymarch_bind", Layout: b.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: img.uniforms.NativeHandle(), Offset: 0, Size: kernel.UniformsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: sb.buf.NativeHandle(), Offset: 0, Size: sb.size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: img.storage.NativeHandle(), Offset: 0, Size: img.bytes}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	img.bindGroup = bg
	img.boundSpheres = sb
	return bg, nil
}

func (b *Backend) trackLocked(img *outputImage) {
	if b.images == nil {
		b.images = make(map[*outputImage]struct{})
	}
	b.images[img] = struct{}{}
}

// unbindLocked waits for every pending dispatch that reads sb and drops
// the bind groups referencing it. The mutex must be held.
func (b *Backend) unbindLocked(sb *sphereBuffer) {
	for img := range b.images {
		if img.boundSpheres != sb {
			continue
		}
		if err := img.waitLocked(); err != nil {
			b.logger().Warn("gpu: releasing spheres with unfinished dispatch", "err", err)
		}
		if img.bindGroup != nil && b.device != nil {
			b.device.DestroyBindGroup(img.bindGroup)
		}
		img.bindGroup = nil
		img.boundSpheres = nil
	}
}

func (b *Backend) sphereBuffer(r raymarch.SphereBuffer) (*sphereBuffer, error) {
	sb, ok := r.(*sphereBuffer)
	if !ok || sb.owner != b {
		return nil, raymarch.ErrForeignResource
	}
	if sb.Released() {
		return nil, raymarch.ErrResourceReleased
	}
	return sb, nil
}

func (b *Backend) image(r raymarch.OutputImage) (*outputImage, error) {
	img, ok := r.(*outputImage)
	if !ok || img.owner != b {
		return nil, raymarch.ErrForeignResource
	}
	if img.Released() {
		return nil, raymarch.ErrResourceReleased
	}
	return img, nil
}

func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	b.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	selected := selectAdapter(adapters)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.info = AdapterInfo{
		Name:     selected.Info.Name,
		Discrete: selected.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU,
	}
	if err := b.createPipeline(); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	b.ready = true
	b.logger().Info("gpu: backend initialized", "adapter", selected.Info.Name)
	return nil
}

// selectAdapter prefers a discrete GPU, then an integrated one, then
// whatever came first.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	var integrated *hal.ExposedAdapter
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU:
			return &adapters[i]
		case gputypes.DeviceTypeIntegratedGPU:
			if integrated == nil {
				integrated = &adapters[i]
			}
		}
	}
	if integrated != nil {
		return integrated
	}
	return &adapters[0]
}

func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
	}
}

func (b *Backend) createPipeline() error {
	spirv, err := compileKernel()
	if err != nil {
		return err
	}
	shader, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "raymarch",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	b.shader = shader

	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "raymarch_bind_layout",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	b.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "raymarch_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{b.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "raymarch_pipeline", Layout: b.pipeLayout,
		Compute: hal.ComputeState{Module: b.shader, EntryPoint: kernel.EntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	b.pipeline = pipeline
	return nil
}

func (b *Backend) destroyPipeline() {
	if b.device == nil {
		return
	}
	if b.pipeline != nil {
		b.device.DestroyComputePipeline(b.pipeline)
		b.pipeline = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.bindLayout != nil {
		b.device.DestroyBindGroupLayout(b.bindLayout)
		b.bindLayout = nil
	}
	if b.shader != nil {
		b.device.DestroyShaderModule(b.shader)
		b.shader = nil
	}
}

func (b *Backend) releaseDeviceLocked() {
	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.images = nil
	b.ready = false
	b.externalDevice = false
	b.info = AdapterInfo{}
}

type sphereBuffer struct {
	owner    *Backend
	buf      hal.Buffer
	size     uint64
	count    int
	released atomic.Bool
}

func (s *sphereBuffer) Count() int { return s.count }

func (s *sphereBuffer) Released() bool { return s.released.Load() }

func (s *sphereBuffer) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.unbindLocked(s)
	if s.owner.device != nil {
		s.owner.device.DestroyBuffer(s.buf)
	}
	s.buf = nil
}

// submission is an in-flight dispatch.
type submission struct {
	cmd   hal.CommandBuffer
	fence hal.Fence
}

type outputImage struct {
	owner *Backend
	size  raymarch.Size
	bytes uint64

	storage  hal.Buffer
	staging  hal.Buffer
	uniforms hal.Buffer

	bindGroup    hal.BindGroup
	boundSpheres *sphereBuffer

	pending  *submission
	released atomic.Bool
}

func (i *outputImage) Size() raymarch.Size { return i.size }

func (i *outputImage) Released() bool { return i.released.Load() }

func (i *outputImage) Release() {
	if !i.released.CompareAndSwap(false, true) {
		return
	}
	i.owner.mu.Lock()
	defer i.owner.mu.Unlock()
	if err := i.waitLocked(); err != nil {
		i.owner.logger().Warn("gpu: releasing image with unfinished dispatch", "err", err)
	}
	i.destroyLocked()
	delete(i.owner.images, i)
}

// waitLocked blocks until the pending submission, if any, has completed.
// The owner's mutex must be held.
func (i *outputImage) waitLocked() error {
	p := i.pending
	if p == nil {
		return nil
	}
	i.pending = nil
	d := i.owner.device
	if d == nil {
		return ErrNotInitialized
	}
	defer d.DestroyFence(p.fence)
	defer d.FreeCommandBuffer(p.cmd)
	ok, err := d.Wait(p.fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for dispatch: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrFenceTimeout, fenceTimeout)
	}
	return nil
}

// destroyLocked frees the image's GPU buffers. The owner's mutex must be
// held.
func (i *outputImage) destroyLocked() {
	d := i.owner.device
	if d == nil {
		return
	}
	if i.bindGroup != nil {
		d.DestroyBindGroup(i.bindGroup)
		i.bindGroup = nil
	}
	for _, buf := range []hal.Buffer{i.storage, i.staging, i.uniforms} {
		if buf != nil {
			d.DestroyBuffer(buf)
		}
	}
	i.storage, i.staging, i.uniforms = nil, nil, nil
	i.boundSpheres = nil
}
