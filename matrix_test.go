package raymarch

import (
	"math"
	"testing"
)

func mat4Near(a, b Mat4, eps float64) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > eps {
			return false
		}
	}
	return true
}

func vec3Near(a, b Vec3, eps float64) bool {
	return math.Abs(float64(a.X-b.X)) <= eps &&
		math.Abs(float64(a.Y-b.Y)) <= eps &&
		math.Abs(float64(a.Z-b.Z)) <= eps
}

func TestMat4_Identity(t *testing.T) {
	id := Identity()
	m := LookAt(V3(1, 2, 3), V3(0, 0, 0), V3(0, 1, 0))
	if id.Mul(m) != m || m.Mul(id) != m {
		t.Error("identity is not neutral for Mul")
	}
	if id.Determinant() != 1 {
		t.Errorf("det(I) = %v, want 1", id.Determinant())
	}
}

func TestMat4_ColumnMajor(t *testing.T) {
	m := Identity()
	m[12], m[13], m[14] = 5, 6, 7 // translation in the fourth column
	if m.At(0, 3) != 5 || m.At(2, 3) != 7 {
		t.Errorf("At(row, col) does not read column-major storage")
	}
	if got := m.TransformPoint(V3(1, 1, 1)); got != V3(6, 7, 8) {
		t.Errorf("TransformPoint = %v, want (6, 7, 8)", got)
	}
	if got := m.TransformDirection(V3(1, 1, 1)); got != V3(1, 1, 1) {
		t.Errorf("TransformDirection = %v, want translation ignored", got)
	}
}

func TestMat4_Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"look-at", LookAt(V3(3, 4, 5), V3(0, 1, 0), V3(0, 1, 0))},
		{"perspective", Perspective(math.Pi/3, 16.0/9, 0.3, 1000)},
		{"product", Perspective(1, 1.5, 0.1, 50).Mul(LookAt(V3(-2, 0, 9), V3(1, 1, 1), V3(0, 1, 0)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Inverse()
			if !ok {
				t.Fatal("Inverse() reported singular")
			}
			if !mat4Near(tt.m.Mul(inv), Identity(), 1e-4) {
				t.Errorf("m * inv(m) = %v, want identity", tt.m.Mul(inv))
			}
		})
	}
}

func TestMat4_InverseSingular(t *testing.T) {
	if _, ok := (Mat4{}).Inverse(); ok {
		t.Error("zero matrix reported invertible")
	}
}

func TestLookAt(t *testing.T) {
	eye := V3(0, 0, 10)
	m := LookAt(eye, V3(0, 0, 0), V3(0, 1, 0))
	if got := m.TransformPoint(Vec3{}); got != eye {
		t.Errorf("camera origin = %v, want %v", got, eye)
	}
	if got := m.TransformDirection(V3(0, 0, -1)); !vec3Near(got, V3(0, 0, -1), 1e-6) {
		t.Errorf("camera forward = %v, want (0, 0, -1)", got)
	}
	if got := m.TransformDirection(V3(1, 0, 0)); !vec3Near(got, V3(1, 0, 0), 1e-6) {
		t.Errorf("camera right = %v, want (1, 0, 0)", got)
	}
}

func TestPerspective_InverseRay(t *testing.T) {
	inv, ok := Perspective(math.Pi/2, 1, 0.1, 100).Inverse()
	if !ok {
		t.Fatal("projection not invertible")
	}
	// NDC (1, 1, 0) at 90 degrees lies on the 45 degree diagonal.
	v := inv.MulVec4(Vec4{X: 1, Y: 1, Z: 0, W: 1})
	d := V3(v.X, v.Y, v.Z).Normalize()
	want := V3(1, 1, -1).Normalize()
	if !vec3Near(d, want, 1e-5) {
		t.Errorf("corner ray = %v, want %v", d, want)
	}
}
