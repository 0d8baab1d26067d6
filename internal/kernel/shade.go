package kernel

import (
	_ "embed"

	"github.com/chewxy/math32"
)

// Source is the WGSL compute program. Entry point "main".
//
//go:embed raymarch.wgsl
var Source string

// EntryPoint is the compute entry point name in Source.
const EntryPoint = "main"

// Constants shared with raymarch.wgsl.
const (
	maxSteps      = 128
	hitEpsilon    = 0.001
	normalEpsilon = 0.0005
	ambient       = 0.08
)

var (
	albedo     = [3]float32{0.9, 0.55, 0.3}
	skyHorizon = [3]float32{0.62, 0.72, 0.86}
	skyZenith  = [3]float32{0.16, 0.3, 0.58}
)

type vec3 [3]float32

func (a vec3) add(b vec3) vec3      { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a vec3) sub(b vec3) vec3      { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a vec3) scale(s float32) vec3 { return vec3{a[0] * s, a[1] * s, a[2] * s} }
func (a vec3) dot(b vec3) float32   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a vec3) length() float32      { return math32.Sqrt(a.dot(a)) }

func (a vec3) normalize() vec3 {
	l := a.length()
	if l == 0 {
		return a
	}
	return a.scale(1 / l)
}

// mulVec4 multiplies a column-major 4x4 matrix by (x, y, z, w).
func mulVec4(m *[16]float32, x, y, z, w float32) [4]float32 {
	var out [4]float32
	for r := 0; r < 4; r++ {
		out[r] = m[r]*x + m[4+r]*y + m[8+r]*z + m[12+r]*w
	}
	return out
}

func sceneDistance(u *Uniforms, spheres []Sphere, p vec3) float32 {
	d := u.ClipRange[1]
	n := int(u.SphereCount)
	if n > len(spheres) {
		n = len(spheres)
	}
	for i := 0; i < n; i++ {
		s := &spheres[i]
		sd := p.sub(vec3{s.X, s.Y, s.Z}).length() - s.Radius
		d = math32.Min(d, sd)
	}
	return d
}

func sceneNormal(u *Uniforms, spheres []Sphere, p vec3) vec3 {
	ex := vec3{normalEpsilon, 0, 0}
	ey := vec3{0, normalEpsilon, 0}
	ez := vec3{0, 0, normalEpsilon}
	return vec3{
		sceneDistance(u, spheres, p.add(ex)) - sceneDistance(u, spheres, p.sub(ex)),
		sceneDistance(u, spheres, p.add(ey)) - sceneDistance(u, spheres, p.sub(ey)),
		sceneDistance(u, spheres, p.add(ez)) - sceneDistance(u, spheres, p.sub(ez)),
	}.normalize()
}

func sky(dir vec3) vec3 {
	t := math32.Max(0, math32.Min(1, dir[1]*0.5+0.5))
	return vec3{
		skyHorizon[0] + (skyZenith[0]-skyHorizon[0])*t,
		skyHorizon[1] + (skyZenith[1]-skyHorizon[1])*t,
		skyHorizon[2] + (skyZenith[2]-skyHorizon[2])*t,
	}
}

// Ray returns the world-space origin and unit direction of the primary ray
// through the center of pixel (x, y).
func Ray(u *Uniforms, x, y uint32) (origin, dir [3]float32) {
	uvx := (float32(x)+0.5)/float32(u.Width)*2 - 1
	uvy := 1 - (float32(y)+0.5)/float32(u.Height)*2

	o := mulVec4(&u.CameraToWorld, 0, 0, 0, 1)
	v := mulVec4(&u.InverseProjection, uvx, uvy, 0, 1)
	d := mulVec4(&u.CameraToWorld, v[0], v[1], v[2], 0)
	return [3]float32{o[0], o[1], o[2]}, vec3{d[0], d[1], d[2]}.normalize()
}

// Shade evaluates one kernel invocation for pixel (x, y) and returns its
// linear RGBA color. It performs the same computation as main in
// raymarch.wgsl.
func Shade(u *Uniforms, spheres []Sphere, x, y uint32) [4]float32 {
	o, d := Ray(u, x, y)
	origin, dir := vec3(o), vec3(d)

	color := sky(dir)
	t := u.ClipRange[0]
	for step := 0; step < maxSteps; step++ {
		if t > u.ClipRange[1] {
			break
		}
		p := origin.add(dir.scale(t))
		dist := sceneDistance(u, spheres, p)
		if dist < hitEpsilon {
			n := sceneNormal(u, spheres, p)
			l := vec3{u.Light[0], u.Light[1], u.Light[2]}
			diffuse := math32.Max(n.dot(l.scale(-1)), 0) * u.Light[3]
			color = vec3(albedo).scale(ambient + diffuse)
			break
		}
		t += dist
	}
	return [4]float32{color[0], color[1], color[2], 1}
}

// Dispatch runs the kernel for every invocation of workgroup (gx, gy),
// writing four channels per pixel into out. Invocations outside the
// width x height image are skipped, as in the WGSL bounds check.
func Dispatch(u *Uniforms, spheres []Sphere, out []float32, gx, gy uint32) {
	x0, y0 := gx*WorkgroupSize, gy*WorkgroupSize
	for ly := uint32(0); ly < WorkgroupSize; ly++ {
		y := y0 + ly
		if y >= u.Height {
			return
		}
		for lx := uint32(0); lx < WorkgroupSize; lx++ {
			x := x0 + lx
			if x >= u.Width {
				break
			}
			c := Shade(u, spheres, x, y)
			copy(out[(y*u.Width+x)*4:], c[:])
		}
	}
}
