// Package fresnel computes the diffraction pattern of a Fresnel array (photon sieve / zone plate):
// the ring geometry of the transparent zones, the binary transmission mask sampled on a square grid,
// and the scalar Fresnel propagation of a complex wavefront through free space.
//
// Lengths are in meters and angles in degrees throughout.
package fresnel

import (
	"fmt"
	"math"
)

// Default values of a Fresnel array, matching the reference instrument.
const (
	DefaultWidth      = 0.065
	DefaultZones      = 160
	DefaultOffset     = 0.75
	DefaultWavelength = 260e-9
	DefaultDuty       = 0.25
)

// ZonePlateSpec describes a Fresnel array. It is a plain value; every derived quantity is
// recomputed from it.
type ZonePlateSpec struct {
	Width       float64 // Side of the square aperture (m)
	Zones       int     // Number of Fresnel zones
	Obstruction float64 // Radius of the central obstruction (m)
	Offset      float64 // Fractional zone offset, conventionally 0.75
	Wavelength  float64 // Design wavelength (m)
	Duty        float64 // Half-width of a transparent ring as a fraction of a zone

	// Opaque support bars crossing the plate along both axes, BarSpacing apart starting at
	// the first ring. Both zero means no bars.
	BarThickness float64
	BarSpacing   float64
}

// DefaultSpec returns the reference Fresnel array: 65 mm, 160 zones, no obstruction, 260 nm.
func DefaultSpec() ZonePlateSpec {
	return ZonePlateSpec{
		Width:      DefaultWidth,
		Zones:      DefaultZones,
		Offset:     DefaultOffset,
		Wavelength: DefaultWavelength,
		Duty:       DefaultDuty,
	}
}

// FocalLength returns f = (W/2)² / ((2N + offset - 0.75) * lambda).
func (s ZonePlateSpec) FocalLength() float64 {
	halfWidth := s.Width / 2
	return halfWidth * halfWidth / ((2*float64(s.Zones) + s.Offset - 0.75) * s.Wavelength)
}

// Validate checks the parameters and the derived focal length.
func (s ZonePlateSpec) Validate() error {
	switch {
	case s.Zones < 1:
		return fmt.Errorf("%w: zone count %d must be at least 1", ErrInvalidSpec, s.Zones)
	case !(s.Width > 0) || math.IsInf(s.Width, 0):
		return fmt.Errorf("%w: width %g must be positive", ErrInvalidSpec, s.Width)
	case !(s.Wavelength > 0) || math.IsInf(s.Wavelength, 0):
		return fmt.Errorf("%w: wavelength %g must be positive", ErrInvalidSpec, s.Wavelength)
	case !(s.Obstruction >= 0):
		return fmt.Errorf("%w: obstruction %g must not be negative", ErrInvalidSpec, s.Obstruction)
	case !(s.Offset >= 0 && s.Offset < 1):
		return fmt.Errorf("%w: offset %g must lie in [0, 1)", ErrInvalidSpec, s.Offset)
	case !(s.Duty > 0 && s.Duty <= 0.5):
		return fmt.Errorf("%w: duty cycle %g must lie in (0, 0.5]", ErrInvalidSpec, s.Duty)
	case s.BarThickness == 0 && s.BarSpacing == 0:
	case !(s.BarThickness > 0 && s.BarSpacing > 0) || math.IsInf(s.BarSpacing, 0):
		return fmt.Errorf("%w: bar thickness %g and spacing %g must both be positive or both zero",
			ErrInvalidSpec, s.BarThickness, s.BarSpacing)
	case s.BarThickness >= s.BarSpacing:
		return fmt.Errorf("%w: bar thickness %g must be less than the spacing %g",
			ErrInvalidSpec, s.BarThickness, s.BarSpacing)
	}

	f := s.FocalLength()
	if !(f > 0) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: focal length %g is not finite and positive", ErrInvalidSpec, f)
	}
	return nil
}

// HasBars reports whether the plate carries support bars.
func (s ZonePlateSpec) HasBars() bool {
	return s.BarThickness > 0 && s.BarSpacing > 0
}

func (s ZonePlateSpec) String() string {
	str := fmt.Sprintf("width=%gm zones=%d obstruction=%gm offset=%g lambda=%gm duty=%g",
		s.Width, s.Zones, s.Obstruction, s.Offset, s.Wavelength, s.Duty)
	if s.HasBars() {
		str += fmt.Sprintf(" bars=%gm/%gm", s.BarThickness, s.BarSpacing)
	}
	return str
}
