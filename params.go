package raymarch

import (
	"fmt"

	"github.com/gogpu/raymarch/internal/kernel"
)

// WorkgroupSize is the edge length of a compute workgroup. Dispatches
// cover the viewport with WorkgroupSize x WorkgroupSize tiles.
const WorkgroupSize = kernel.WorkgroupSize

// Size is a viewport or image size in pixels.
type Size struct {
	Width, Height int
}

// Empty reports whether the size has zero area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DispatchGroups returns the workgroup counts covering a width x height
// image: ceil(width/8) by ceil(height/8). Non-positive sizes yield zero.
func DispatchGroups(width, height int) (x, y uint32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return kernel.DispatchSize(uint32(width), uint32(height)) //nolint:gosec // validated positive
}

// FrameParams is the per-frame parameter set pushed to the compute stage.
// It is rebuilt every frame and never stored.
type FrameParams struct {
	CameraToWorld     Mat4
	InverseProjection Mat4
	ClipRange         Vec2 // near, far
	Light             Vec4 // forward xyz, intensity
	Size              Size
	SphereCount       int
}

// NewFrameParams gathers the camera and light state for one frame.
// The projection is inverted here; a singular projection is reported as
// an error rather than dispatched.
func NewFrameParams(cam *Camera, light *DirectionalLight, size Size, sphereCount int) (FrameParams, error) {
	invProj, ok := cam.Projection.Inverse()
	if !ok {
		return FrameParams{}, fmt.Errorf("raymarch: camera projection is not invertible")
	}
	l := light.Forward
	return FrameParams{
		CameraToWorld:     cam.CameraToWorld,
		InverseProjection: invProj,
		ClipRange:         Vec2{X: cam.Near, Y: cam.Far},
		Light:             Vec4{X: l.X, Y: l.Y, Z: l.Z, W: light.Intensity},
		Size:              size,
		SphereCount:       sphereCount,
	}, nil
}

// Uniforms converts the parameters into the kernel's uniform block.
func (p FrameParams) Uniforms() kernel.Uniforms {
	return kernel.Uniforms{
		CameraToWorld:     p.CameraToWorld,
		InverseProjection: p.InverseProjection,
		ClipRange:         [4]float32{p.ClipRange.X, p.ClipRange.Y, 0, 0},
		Light:             [4]float32{p.Light.X, p.Light.Y, p.Light.Z, p.Light.W},
		Width:             uint32(max(p.Size.Width, 0)),  //nolint:gosec // clamped
		Height:            uint32(max(p.Size.Height, 0)), //nolint:gosec // clamped
		SphereCount:       uint32(max(p.SphereCount, 0)), //nolint:gosec // clamped
	}
}

// Bytes serializes the parameters into the kernel's uniform block layout.
func (p FrameParams) Bytes() []byte {
	u := p.Uniforms()
	return u.Bytes()
}
