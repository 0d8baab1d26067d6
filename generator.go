package raymarch

import (
	"fmt"

	"github.com/chewxy/math32"
)

// GenerationParams configures procedural sphere placement.
type GenerationParams struct {
	Seed        uint32
	Count       int
	RadiusRange RadiusRange
	Bounds      Bounds
}

// DefaultGenerationParams returns 30 spheres with radii in [1, 10] inside
// a 60 x 20 x 60 box resting on the origin.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Seed:        1,
		Count:       30,
		RadiusRange: RadiusRange{Min: 1, Max: 10},
		Bounds:      Bounds{Center: V3(0, 10, 0), Extents: V3(30, 10, 30)},
	}
}

// Validate reports the first configuration error in p, if any.
// All returned errors wrap one of the Err* configuration sentinels.
func (p GenerationParams) Validate() error {
	if p.Seed == 0 {
		return ErrZeroSeed
	}
	if p.Count < 1 || p.Count > MaxSphereCount {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, p.Count, MaxSphereCount)
	}
	rr := p.RadiusRange
	if !isFinite(rr.Min) || !isFinite(rr.Max) || rr.Min <= 0 || rr.Min > rr.Max {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRadiusRange, rr.Min, rr.Max)
	}
	b := p.Bounds
	if !b.Center.IsFinite() || !b.Extents.IsFinite() || b.Extents.MinComponent() <= 0 {
		return fmt.Errorf("%w: center %v extents %v", ErrInvalidBounds, b.Center, b.Extents)
	}
	if e := b.Extents.MinComponent(); e < rr.Min {
		return fmt.Errorf("%w: smallest half-extent %g < minimum radius %g", ErrVolumeTooSmall, e, rr.Min)
	}
	return nil
}

// EffectiveRadiusRange returns the interval radii are actually drawn from:
// the configured range with its upper end capped at the smallest
// half-extent of the spawn volume, so that every drawn sphere has a
// non-empty placement interval on every axis.
func (p GenerationParams) EffectiveRadiusRange() RadiusRange {
	rr := p.RadiusRange
	rr.Max = math32.Min(rr.Max, p.Bounds.Extents.MinComponent())
	return rr
}

// Generate deterministically places p.Count spheres inside p.Bounds.
//
// For each sphere, in order, it draws the radius uniformly from
// EffectiveRadiusRange and then the position uniformly from the volume
// inset by that radius, one axis at a time in X, Y, Z order. Spheres may
// overlap. The same params always produce the same spheres.
func Generate(p GenerationParams) ([]Sphere, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rng, err := NewRandom(p.Seed)
	if err != nil {
		return nil, err
	}

	rr := p.EffectiveRadiusRange()
	c, e := p.Bounds.Center, p.Bounds.Extents
	spheres := make([]Sphere, p.Count)
	for i := range spheres {
		r := rng.NextFloatRange(rr.Min, rr.Max)
		inset := e.Sub(Splat3(r))
		pos := c.Add(rng.NextFloat3Range(inset.Neg(), inset))
		spheres[i] = Sphere{Position: clampToInset(pos, c, e, r), Radius: r}
	}
	return spheres, nil
}

// clampToInset pins pos into [c-inset, c+inset] per axis, then steps each
// coordinate toward the center until |pos-c|+r <= e holds in float32.
// The center+offset sum can round past the inset boundary, so the clamp
// alone does not guarantee containment.
func clampToInset(pos, c, e Vec3, r float32) Vec3 {
	fit := func(v, center, half float32) float32 {
		inset := half - r
		lo, hi := center-inset, center+inset
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		for math32.Abs(v-center)+r > half {
			v = math32.Nextafter(v, center)
		}
		return v
	}
	return Vec3{
		X: fit(pos.X, c.X, e.X),
		Y: fit(pos.Y, c.Y, e.Y),
		Z: fit(pos.Z, c.Z, e.Z),
	}
}
