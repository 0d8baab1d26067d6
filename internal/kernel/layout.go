// Package kernel holds the ray-marching compute kernel in both of its forms:
// the WGSL program dispatched by the GPU backend and a CPU evaluation of the
// same per-invocation function used by the software backend.
//
// The GPU data structures in this package match the WGSL declarations in
// raymarch.wgsl byte for byte. All values are little endian.
package kernel

import (
	"encoding/binary"
	"math"
)

// WorkgroupSize is the edge length of one compute workgroup (8x8x1 threads).
const WorkgroupSize = 8

// Record sizes in bytes.
const (
	// SphereSize is the stride of one Sphere record in the storage buffer.
	SphereSize = 16

	// UniformsSize is the size of the Uniforms block.
	UniformsSize = 176

	// PixelSize is the size of one RGBA32F output texel.
	PixelSize = 16
)

// Sphere is a sphere record as read by the kernel.
// Must match struct Sphere in raymarch.wgsl.
type Sphere struct {
	X, Y, Z float32
	Radius  float32
}

// Uniforms is the per-frame parameter block.
// Must match struct Uniforms in raymarch.wgsl.
//
// Matrices are column-major: element (row r, column c) is at index c*4+r.
type Uniforms struct {
	CameraToWorld     [16]float32
	InverseProjection [16]float32
	ClipRange         [4]float32 // near, far, unused, unused
	Light             [4]float32 // forward xyz, intensity
	Width             uint32
	Height            uint32
	SphereCount       uint32
	Padding           uint32
}

// DispatchSize returns the number of workgroups needed to cover a
// width x height image, rounding partial groups at the edges up.
func DispatchSize(width, height uint32) (x, y uint32) {
	return (width + WorkgroupSize - 1) / WorkgroupSize, (height + WorkgroupSize - 1) / WorkgroupSize
}

// EncodeSpheres serializes spheres into a storage buffer payload.
func EncodeSpheres(spheres []Sphere) []byte {
	buf := make([]byte, len(spheres)*SphereSize)
	for i, s := range spheres {
		off := i * SphereSize
		writeFloat32(buf, off+0, s.X)
		writeFloat32(buf, off+4, s.Y)
		writeFloat32(buf, off+8, s.Z)
		writeFloat32(buf, off+12, s.Radius)
	}
	return buf
}

// DecodeSpheres is the inverse of EncodeSpheres. Trailing bytes that do not
// form a whole record are ignored.
func DecodeSpheres(buf []byte) []Sphere {
	n := len(buf) / SphereSize
	out := make([]Sphere, n)
	for i := range out {
		off := i * SphereSize
		out[i] = Sphere{
			X:      readFloat32(buf, off+0),
			Y:      readFloat32(buf, off+4),
			Z:      readFloat32(buf, off+8),
			Radius: readFloat32(buf, off+12),
		}
	}
	return out
}

// Bytes serializes the uniform block.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, UniformsSize)
	off := 0
	for _, v := range u.CameraToWorld {
		writeFloat32(buf, off, v)
		off += 4
	}
	for _, v := range u.InverseProjection {
		writeFloat32(buf, off, v)
		off += 4
	}
	for _, v := range u.ClipRange {
		writeFloat32(buf, off, v)
		off += 4
	}
	for _, v := range u.Light {
		writeFloat32(buf, off, v)
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], u.Width)
	binary.LittleEndian.PutUint32(buf[off+4:], u.Height)
	binary.LittleEndian.PutUint32(buf[off+8:], u.SphereCount)
	binary.LittleEndian.PutUint32(buf[off+12:], u.Padding)
	return buf
}

// DecodePixels converts a readback of RGBA32F texels into a float slice
// holding four channels per pixel.
func DecodePixels(buf []byte, dst []float32) {
	n := len(buf) / 4
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = readFloat32(buf, i*4)
	}
}

func writeFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func readFloat32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}
