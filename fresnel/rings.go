package fresnel

import (
	"fmt"
	"math"
	"sort"
)

// Ring is a transparent annulus, Inner <= radius <= Outer.
type Ring struct {
	Inner float64
	Outer float64
}

// RingList holds the transparent annuli ordered from the center outward.
// It is built once per spec and only read afterwards.
type RingList []Ring

// BuildRings computes the 2N+1 transparent rings of the Fresnel array and clips them
// against the central obstruction.
//
// Ring k spans the zone indices k+offset-duty .. k+offset+duty, converted to radii with the
// exact (non-paraxial) zone plate relation r = sqrt(2*f*lambda*k + (k*lambda)²).
func BuildRings(spec ZonePlateSpec) (RingList, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	f := spec.FocalLength()
	n := 2*spec.Zones + 1
	rings := make(RingList, 0, n)
	for k := 0; k < n; k++ {
		center := float64(k) + spec.Offset
		rings = append(rings, Ring{
			Inner: zoneRadius(f, spec.Wavelength, center-spec.Duty),
			Outer: zoneRadius(f, spec.Wavelength, center+spec.Duty),
		})
	}

	return clipObstruction(rings, spec.Obstruction)
}

// zoneRadius is the radius of the (fractional) zone boundary kAdj.
// Only the first ring can see a negative kAdj (offset < duty); it then starts at the center.
func zoneRadius(f, lambda, kAdj float64) float64 {
	if kAdj < 0 {
		kAdj = 0
	}
	return math.Sqrt(2*f*lambda*kAdj + (kAdj*lambda)*(kAdj*lambda))
}

// clipObstruction removes the rings hidden by a central disk of radius o and clamps
// the inner radius of a ring that the disk edge falls into.
func clipObstruction(rings RingList, o float64) (RingList, error) {
	for len(rings) > 0 {
		first := rings[0]
		if o < first.Inner {
			return rings, nil
		}
		if o < first.Outer {
			rings[0].Inner = o
			return rings, nil
		}
		rings = rings[1:]
	}
	return nil, fmt.Errorf("%w: obstruction radius %g m hides every ring", ErrDegenerateGeometry, o)
}

// Contains reports whether radius r falls inside one of the rings.
func (rl RingList) Contains(r float64) bool {
	return rl.covers(rl.cursor(r), r)
}

// OuterRadius is the outer radius of the last ring, or 0 for an empty list.
func (rl RingList) OuterRadius() float64 {
	if len(rl) == 0 {
		return 0
	}
	return rl[len(rl)-1].Outer
}

// cursor returns the index of the first ring whose outer radius is >= r.
func (rl RingList) cursor(r float64) int {
	return sort.Search(len(rl), func(k int) bool { return rl[k].Outer >= r })
}

// covers reports whether r is inside ring k, k being a cursor for r.
func (rl RingList) covers(k int, r float64) bool {
	return k < len(rl) && r >= rl[k].Inner
}

// stepCursor moves the ring cursor k to the first ring whose outer radius is >= r.
// Successive radii along a scan line are close, so the cursor moves by a ring or two.
func stepCursor(rl RingList, k int, r float64) int {
	for k < len(rl) && rl[k].Outer < r {
		k++
	}
	for k > 0 && rl[k-1].Outer >= r {
		k--
	}
	return k
}
