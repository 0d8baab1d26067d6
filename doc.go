// Package raymarch renders procedurally generated sphere scenes with a
// compute-shader ray marcher.
//
// # Overview
//
// raymarch has two halves:
//
//   - Scene generation: [Generate] deterministically places N spheres
//     inside an axis-aligned spawn volume from a seed. Identical
//     [GenerationParams] always produce identical spheres.
//   - Frame rendering: [Master] owns the uploaded sphere buffer and an
//     output image sized to the viewport, pushes camera and light state to
//     a [ComputeBackend] each frame, dispatches the kernel in 8x8
//     workgroups and composites the result onto the host's image.
//
// # Quick Start
//
//	params := raymarch.DefaultGenerationParams()
//	light := raymarch.NewDirectionalLight(raymarch.V3(-1, -2, -1), 1)
//	m := raymarch.New(raymarch.NewSoftwareBackend(), params, raymarch.WithLight(light))
//	if err := m.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Teardown()
//
//	cam := raymarch.NewPerspectiveCamera(raymarch.V3(0, 20, 80), raymarch.V3(0, 5, 0),
//	    raymarch.V3(0, 1, 0), math.Pi/3, 16.0/9, 0.1, 500)
//	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
//	err := m.RenderImage(cam, nil, img)
//
// # Backends
//
// The software backend runs the kernel on the CPU and is always available.
// GPU rendering via gogpu/wgpu is enabled by a blank import:
//
//	import _ "github.com/gogpu/raymarch/gpu"
//
// after which [DefaultBackend] returns the GPU backend.
//
// # Lifecycle
//
// A Master moves through Uninitialized → Ready → Disposed via
// [Master.Initialize], [Master.OnParametersChanged] and [Master.Teardown].
// GPU-side resources are released deterministically on replacement and
// teardown.
//
// # Coordinate System
//
// Right-handed world space, column vectors, camera looking down its local
// -Z axis (OpenGL convention). Image row 0 is the top of the frame.
package raymarch

// Version is the current version of the library.
const Version = "0.1.0"
