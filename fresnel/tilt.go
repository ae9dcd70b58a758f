package fresnel

import (
	"fmt"
	"math"
	"math/cmplx"
)

// ApplyTilt adds the optical path difference of a point source seen deviationDeg
// (0 <= deviation < 90) off the optical axis, at azimuthDeg (0 <= azimuth < 360) measured
// from the horizontal semi-axis. The phase is added; amplitudes are unchanged.
func (w *Wavefront) ApplyTilt(deviationDeg, azimuthDeg float64) error {
	if !(deviationDeg >= 0 && deviationDeg < 90) {
		return fmt.Errorf("%w: deviation %g deg must lie in [0, 90)", ErrInvalidAngle, deviationDeg)
	}
	if !(azimuthDeg >= 0 && azimuthDeg < 360) {
		return fmt.Errorf("%w: azimuth %g deg must lie in [0, 360)", ErrInvalidAngle, azimuthDeg)
	}
	if deviationDeg == 0 {
		return nil
	}

	deviation := deviationDeg * math.Pi / 180
	azimuth := azimuthDeg * math.Pi / 180

	// Unit vector pointing at the source, projected on the plane
	sourceX := math.Cos(azimuth) * math.Sin(deviation)
	sourceY := math.Sin(azimuth) * math.Sin(deviation)

	k := 2 * math.Pi / w.Wavelength
	rowPhase := make([]complex128, w.Size)
	colPhase := make([]complex128, w.Size)
	for i := 0; i < w.Size; i++ {
		u := w.Coord(i)
		rowPhase[i] = cmplx.Exp(complex(0, k*sourceY*u))
		colPhase[i] = cmplx.Exp(complex(0, k*sourceX*u))
	}
	return w.mulSeparable(rowPhase, colPhase, 0)
}
