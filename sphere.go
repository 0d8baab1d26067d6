package raymarch

import (
	"fmt"

	"github.com/gogpu/raymarch/internal/kernel"
)

// MaxSphereCount is the largest number of spheres a scene may hold.
const MaxSphereCount = 1000

// SphereStride is the size in bytes of one packed Sphere in a GPU buffer.
const SphereStride = kernel.SphereSize

// Sphere is one primitive of the scene. Spheres are immutable once
// generated.
type Sphere struct {
	Position Vec3
	Radius   float32
}

// String returns a compact representation for logs and test output.
func (s Sphere) String() string {
	return fmt.Sprintf("Sphere{(%g, %g, %g) r=%g}", s.Position.X, s.Position.Y, s.Position.Z, s.Radius)
}

// Bounds is an axis-aligned box given by its center and half-extents.
type Bounds struct {
	Center  Vec3
	Extents Vec3
}

// NewBounds returns a box centered at center with full size size.
func NewBounds(center, size Vec3) Bounds {
	return Bounds{Center: center, Extents: size.Mul(0.5)}
}

// Min returns the minimum corner.
func (b Bounds) Min() Vec3 { return b.Center.Sub(b.Extents) }

// Max returns the maximum corner.
func (b Bounds) Max() Vec3 { return b.Center.Add(b.Extents) }

// Size returns the full edge lengths of the box.
func (b Bounds) Size() Vec3 { return b.Extents.Mul(2) }

// ContainsSphere reports whether s lies entirely inside b on every axis.
func (b Bounds) ContainsSphere(s Sphere) bool {
	for a := 0; a < 3; a++ {
		d := s.Position.Component(a) - b.Center.Component(a)
		if d < 0 {
			d = -d
		}
		if d+s.Radius > b.Extents.Component(a) {
			return false
		}
	}
	return true
}

// RadiusRange is the closed interval sphere radii are drawn from.
type RadiusRange struct {
	Min, Max float32
}

// Contains reports whether r lies in [Min, Max].
func (rr RadiusRange) Contains(r float32) bool {
	return r >= rr.Min && r <= rr.Max
}

// EncodeSpheres packs spheres into the little-endian layout read by the
// compute kernel: three float32 position components followed by the
// float32 radius, SphereStride bytes per sphere.
func EncodeSpheres(spheres []Sphere) []byte {
	return kernel.EncodeSpheres(toKernelSpheres(spheres))
}

func toKernelSpheres(spheres []Sphere) []kernel.Sphere {
	out := make([]kernel.Sphere, len(spheres))
	for i, s := range spheres {
		out[i] = kernel.Sphere{X: s.Position.X, Y: s.Position.Y, Z: s.Position.Z, Radius: s.Radius}
	}
	return out
}
