package fresnel

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Propagator carries the numerical choices of a Fresnel propagation.
// The zero value uses gonum, one worker per CPU and omits the global phase factor.
type Propagator struct {
	Backend FFTBackend

	// FullPhase multiplies the result by exp(i·2π·z/λ)/i, the constant factor of the
	// Fresnel integral. It changes only the global phase, so intensities do not depend on it.
	FullPhase bool

	Workers int
}

// Propagate evolves w over distance meters of free space with the default Propagator.
func (w *Wavefront) Propagate(distance float64) error {
	return Propagator{}.Propagate(w, distance)
}

// Propagate evolves w in place over distance meters of free space using single-FFT
// Fresnel diffraction:
//
//  1. multiply by exp(i·c·(x²+y²)) with c = π/(z·λ)
//  2. take the 2-D DFT, recenter the zero frequency and divide by the size
//     (Parseval then keeps the total energy unchanged)
//  3. rescale the sampled square to size·λ·z/extent
//  4. multiply by exp(i·c·(x²+y²)) again, with the new coordinates
//
// A zero distance leaves w untouched. Two successive propagations do not in general equal
// one propagation over the summed distance, since each step resamples the plane.
func (p Propagator) Propagate(w *Wavefront, distance float64) error {
	if !(distance >= 0) || math.IsInf(distance, 0) {
		return fmt.Errorf("%w: %g m (must be zero or positive)", ErrInvalidDistance, distance)
	}
	if distance == 0 {
		return nil
	}

	c := math.Pi / (distance * w.Wavelength)

	chirp := w.chirp(c)
	if err := w.mulSeparable(chirp, chirp, p.Workers); err != nil {
		return err
	}

	fft2InPlace(w.Field, p.Backend)
	fftShift2D(w.Field)

	w.Extent = float64(w.Size) * w.Wavelength * distance / w.Extent

	chirp = w.chirp(c)
	norm := complex(1/float64(w.Size), 0)
	if p.FullPhase {
		// exp(i·2π·z/λ)/i; only the fractional number of waves matters
		_, waves := math.Modf(distance / w.Wavelength)
		norm *= cmplx.Exp(complex(0, 2*math.Pi*waves)) / 1i
	}
	rowChirp := make([]complex128, len(chirp))
	for i, v := range chirp {
		rowChirp[i] = v * norm
	}
	return w.mulSeparable(rowChirp, chirp, p.Workers)
}

// chirp returns exp(i·c·u²) for the sample coordinates u along one axis.
func (w *Wavefront) chirp(c float64) []complex128 {
	out := make([]complex128, w.Size)
	for i := range out {
		u := w.Coord(i)
		out[i] = cmplx.Exp(complex(0, c*u*u))
	}
	return out
}
