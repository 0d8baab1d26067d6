//go:build !nogpu

// Package gpu runs the ray-marching kernel on the GPU through the
// gogpu/wgpu hardware abstraction layer.
//
// The kernel in internal/kernel is compiled from WGSL to SPIR-V with naga
// and bound as a single compute pipeline:
//
//	@group(0) @binding(0) uniform        Uniforms (176 bytes)
//	@group(0) @binding(1) storage, read  array<Sphere>
//	@group(0) @binding(2) storage, rw    array<vec4<f32>> (RGBA32F output)
//
// Each Dispatch encodes one compute pass followed by a copy of the output
// into a staging buffer and submits it with a fence. Blit waits on that
// fence, reads the staging buffer back and composites it onto the host
// image, so a dispatch and its blit may be separated by unrelated CPU work.
//
// The backend either creates its own Vulkan device or borrows one from a
// host through SetDeviceProvider. Borrowed devices are never destroyed.
package gpu
