package raymarch

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func assertContained(t *testing.T, p GenerationParams, spheres []Sphere) {
	t.Helper()
	for i, s := range spheres {
		if !p.RadiusRange.Contains(s.Radius) {
			t.Errorf("sphere %d: radius %v outside [%v, %v]", i, s.Radius, p.RadiusRange.Min, p.RadiusRange.Max)
		}
		if !p.Bounds.ContainsSphere(s) {
			t.Errorf("sphere %d (%v) exits spawn volume %v", i, s, p.Bounds)
		}
	}
}

func TestGenerate_Example(t *testing.T) {
	p := GenerationParams{
		Seed:        1,
		Count:       3,
		RadiusRange: RadiusRange{Min: 1, Max: 2},
		Bounds:      Bounds{Center: V3(0, 0, 0), Extents: V3(5, 5, 5)},
	}

	first, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len = %d, want 3", len(first))
	}
	assertContained(t, p, first)

	second, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed produced different spheres:\n%v\n%v", first, second)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	tests := []GenerationParams{
		DefaultGenerationParams(),
		{Seed: 7, Count: 1000, RadiusRange: RadiusRange{Min: 0.1, Max: 0.5}, Bounds: Bounds{Center: V3(10, -3, 2), Extents: V3(1, 2, 3)}},
		{Seed: math.MaxUint32, Count: 1, RadiusRange: RadiusRange{Min: 2, Max: 2}, Bounds: Bounds{Extents: V3(2, 2, 2)}},
	}
	for _, p := range tests {
		a, err := Generate(p)
		if err != nil {
			t.Fatalf("Generate(%+v) error = %v", p, err)
		}
		b, _ := Generate(p)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Generate(%+v) not deterministic", p)
		}
		if len(a) != p.Count {
			t.Errorf("len = %d, want %d", len(a), p.Count)
		}
		assertContained(t, p, a)
	}
}

func TestGenerate_SeedSensitivity(t *testing.T) {
	p := DefaultGenerationParams()
	base, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	same := 0
	for seed := uint32(2); seed < 50; seed++ {
		p.Seed = seed
		other, err := Generate(p)
		if err != nil {
			t.Fatal(err)
		}
		if reflect.DeepEqual(base, other) {
			same++
		}
	}
	if same != 0 {
		t.Errorf("%d of 48 other seeds reproduced the seed-1 scene", same)
	}
}

func TestGenerate_PropertiesOverSeeds(t *testing.T) {
	for seed := uint32(1); seed <= 200; seed++ {
		p := GenerationParams{
			Seed:        seed,
			Count:       int(seed%50) + 1,
			RadiusRange: RadiusRange{Min: 0.5, Max: 4},
			Bounds:      Bounds{Center: V3(float32(seed), -2, 3), Extents: V3(4, 6, 10)},
		}
		spheres, err := Generate(p)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		assertContained(t, p, spheres)
	}
}

func TestGenerate_RadiusLargerThanExtent(t *testing.T) {
	// Radii up to 10 requested, but the Y half-extent is only 1.5.
	p := GenerationParams{
		Seed:        3,
		Count:       200,
		RadiusRange: RadiusRange{Min: 1, Max: 10},
		Bounds:      Bounds{Center: V3(0, 0, 0), Extents: V3(20, 1.5, 20)},
	}
	spheres, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContained(t, p, spheres)
	for i, s := range spheres {
		if s.Radius > 1.5 {
			t.Errorf("sphere %d radius %v exceeds smallest half-extent 1.5", i, s.Radius)
		}
	}
	if got := p.EffectiveRadiusRange(); got != (RadiusRange{Min: 1, Max: 1.5}) {
		t.Errorf("EffectiveRadiusRange() = %+v, want [1, 1.5]", got)
	}
}

func TestGenerate_RadiusEqualToExtent(t *testing.T) {
	p := GenerationParams{
		Seed:        9,
		Count:       10,
		RadiusRange: RadiusRange{Min: 2, Max: 2},
		Bounds:      Bounds{Center: V3(1, 2, 3), Extents: V3(2, 2, 2)},
	}
	spheres, err := Generate(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range spheres {
		if s.Position != p.Bounds.Center {
			t.Errorf("sphere %v should sit exactly at the center", s)
		}
	}
}

func TestGenerationParams_Validate(t *testing.T) {
	valid := GenerationParams{
		Seed:        1,
		Count:       3,
		RadiusRange: RadiusRange{Min: 1, Max: 2},
		Bounds:      Bounds{Extents: V3(5, 5, 5)},
	}
	nan := float32(math.NaN())

	tests := []struct {
		name   string
		mutate func(*GenerationParams)
		want   error
	}{
		{"valid", func(*GenerationParams) {}, nil},
		{"zero seed", func(p *GenerationParams) { p.Seed = 0 }, ErrZeroSeed},
		{"zero count", func(p *GenerationParams) { p.Count = 0 }, ErrInvalidCount},
		{"negative count", func(p *GenerationParams) { p.Count = -4 }, ErrInvalidCount},
		{"count too large", func(p *GenerationParams) { p.Count = MaxSphereCount + 1 }, ErrInvalidCount},
		{"max count", func(p *GenerationParams) { p.Count = MaxSphereCount }, nil},
		{"min greater than max", func(p *GenerationParams) { p.RadiusRange = RadiusRange{Min: 3, Max: 2} }, ErrInvalidRadiusRange},
		{"zero radius", func(p *GenerationParams) { p.RadiusRange.Min = 0 }, ErrInvalidRadiusRange},
		{"nan radius", func(p *GenerationParams) { p.RadiusRange.Max = nan }, ErrInvalidRadiusRange},
		{"flat volume", func(p *GenerationParams) { p.Bounds.Extents.Y = 0 }, ErrInvalidBounds},
		{"negative extent", func(p *GenerationParams) { p.Bounds.Extents.X = -1 }, ErrInvalidBounds},
		{"nan center", func(p *GenerationParams) { p.Bounds.Center.Z = nan }, ErrInvalidBounds},
		{"volume smaller than min radius", func(p *GenerationParams) { p.Bounds.Extents.Z = 0.5 }, ErrVolumeTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if _, genErr := Generate(p); !errors.Is(genErr, tt.want) {
				t.Errorf("Generate() = %v, want %v", genErr, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	b := NewBounds(V3(1, 2, 3), V3(4, 6, 8))
	if b.Extents != V3(2, 3, 4) {
		t.Errorf("Extents = %v, want (2, 3, 4)", b.Extents)
	}
	if b.Min() != V3(-1, -1, -1) || b.Max() != V3(3, 5, 7) {
		t.Errorf("Min/Max = %v/%v", b.Min(), b.Max())
	}
	if b.Size() != V3(4, 6, 8) {
		t.Errorf("Size() = %v", b.Size())
	}

	tests := []struct {
		s    Sphere
		want bool
	}{
		{Sphere{Position: V3(1, 2, 3), Radius: 2}, true},
		{Sphere{Position: V3(1, 2, 3), Radius: 2.5}, false},
		{Sphere{Position: V3(2, 2, 3), Radius: 1}, true},
		{Sphere{Position: V3(2.5, 2, 3), Radius: 1}, false},
		{Sphere{Position: V3(1, 2, -0.5), Radius: 0.5}, true},
	}
	for _, tt := range tests {
		if got := b.ContainsSphere(tt.s); got != tt.want {
			t.Errorf("ContainsSphere(%v) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestEncodeSpheres(t *testing.T) {
	spheres := []Sphere{
		{Position: V3(1, 2, 3), Radius: 4},
		{Position: V3(-1, 0.5, 8), Radius: 0.25},
	}
	buf := EncodeSpheres(spheres)
	if len(buf) != 2*SphereStride || SphereStride != 16 {
		t.Fatalf("len = %d, stride = %d", len(buf), SphereStride)
	}
	// radius of the first sphere: float32(4) = 0x40800000, little endian
	if buf[12] != 0x00 || buf[13] != 0x00 || buf[14] != 0x80 || buf[15] != 0x40 {
		t.Errorf("radius bytes = % x, want 00 00 80 40", buf[12:16])
	}
}

func TestGenerate_ContainedAtOffCenterBounds(t *testing.T) {
	// Non-integral center and radii close to the extents make the
	// center+offset sum round past the inset boundary.
	p := GenerationParams{
		Count:       100,
		RadiusRange: RadiusRange{Min: 0.3, Max: 4.7},
		Bounds:      Bounds{Center: V3(123.456, -7.1, 0.3), Extents: V3(4.7, 6.1, 10.3)},
	}
	for seed := uint32(1); seed <= 2000; seed++ {
		p.Seed = seed
		spheres, err := Generate(p)
		if err != nil {
			t.Fatalf("seed %d: Generate() error = %v", seed, err)
		}
		for i, s := range spheres {
			if !p.Bounds.ContainsSphere(s) {
				t.Fatalf("seed %d sphere %d (%v) exits spawn volume", seed, i, s)
			}
		}
	}
}

func TestClampToInset_StepsInsideBoundary(t *testing.T) {
	c, e := V3(123.456, -7.1, 0.3), V3(4.7, 6.1, 10.3)
	r := float32(4.667012)
	b := Bounds{Center: c, Extents: e}
	corners := []Vec3{
		c.Add(e.Sub(Splat3(r))),
		c.Sub(e.Sub(Splat3(r))),
		c.Add(e),
		c.Sub(e.Mul(2)),
	}
	for _, pos := range corners {
		got := clampToInset(pos, c, e, r)
		if !b.ContainsSphere(Sphere{Position: got, Radius: r}) {
			t.Errorf("clampToInset(%v) = %v, not contained", pos, got)
		}
	}
}
