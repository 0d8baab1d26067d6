package raymarch

import "github.com/chewxy/math32"

// Camera is the live camera state supplied by the host each frame.
//
// TransformChanged is set by SetTransform and cleared by Master after
// every rendered frame. Hosts may use it to detect camera motion between
// frames; the renderer attaches no meaning to it.
type Camera struct {
	CameraToWorld Mat4
	Projection    Mat4
	Near, Far     float32

	TransformChanged bool
}

// NewPerspectiveCamera returns a camera at eye looking at target with a
// vertical field of view of fovY radians.
func NewPerspectiveCamera(eye, target, up Vec3, fovY, aspect, near, far float32) *Camera {
	return &Camera{
		CameraToWorld: LookAt(eye, target, up),
		Projection:    Perspective(fovY, aspect, near, far),
		Near:          near,
		Far:           far,
	}
}

// SetTransform replaces the camera-to-world transform and marks the
// transform as changed.
func (c *Camera) SetTransform(cameraToWorld Mat4) {
	c.CameraToWorld = cameraToWorld
	c.TransformChanged = true
}

// SetAspect rebuilds the projection for a new aspect ratio, keeping the
// vertical field of view encoded in the current projection.
func (c *Camera) SetAspect(aspect float32) {
	f := c.Projection[5]
	if f == 0 || aspect <= 0 {
		return
	}
	fovY := 2 * math32.Atan(1/f)
	c.Projection = Perspective(fovY, aspect, c.Near, c.Far)
}

// Position returns the camera origin in world space.
func (c *Camera) Position() Vec3 {
	return c.CameraToWorld.TransformPoint(Vec3{})
}

// Forward returns the unit viewing direction in world space.
func (c *Camera) Forward() Vec3 {
	return c.CameraToWorld.TransformDirection(V3(0, 0, -1)).Normalize()
}

// DirectionalLight is a light infinitely far away shining along Forward.
type DirectionalLight struct {
	Forward   Vec3
	Intensity float32
}

// NewDirectionalLight returns a light shining along forward, normalized.
func NewDirectionalLight(forward Vec3, intensity float32) *DirectionalLight {
	return &DirectionalLight{Forward: forward.Normalize(), Intensity: intensity}
}
