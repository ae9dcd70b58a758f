package fresnel

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Wavefront is the complex electric field sampled at the pixel centers of a square plane
// perpendicular to the optical axis. Propagation rescales Extent along with the values.
type Wavefront struct {
	Wavelength float64        // Wavelength of the monochromatic source (m)
	Extent     float64        // Side of the sampled square (m)
	Size       int            // Samples per side
	Field      [][]complex128 // Field[row][col]; x runs along columns, y along rows
}

// NewWavefront returns a unit-amplitude plane wave arriving along the optical axis.
func NewWavefront(wavelength float64, size int, extent float64) (*Wavefront, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if !(wavelength > 0) || math.IsInf(wavelength, 0) {
		return nil, fmt.Errorf("%w: wavelength %g must be positive", ErrInvalidSpec, wavelength)
	}
	if !(extent > 0) || math.IsInf(extent, 0) {
		return nil, fmt.Errorf("%w: wavefront extent %g must be positive", ErrInvalidSpec, extent)
	}

	field := makeComplex2D(size, size)
	for _, row := range field {
		for i := range row {
			row[i] = 1
		}
	}
	return &Wavefront{Wavelength: wavelength, Extent: extent, Size: size, Field: field}, nil
}

// NewTiltedWavefront returns the plane wave of a point source at infinity seen deviationDeg
// off the optical axis, in the direction azimuthDeg from the horizontal semi-axis.
func NewTiltedWavefront(wavelength float64, size int, extent, deviationDeg, azimuthDeg float64) (*Wavefront, error) {
	w, err := NewWavefront(wavelength, size, extent)
	if err != nil {
		return nil, err
	}
	if err := w.ApplyTilt(deviationDeg, azimuthDeg); err != nil {
		return nil, err
	}
	return w, nil
}

// Pitch is the physical distance between adjacent samples (m).
func (w *Wavefront) Pitch() float64 {
	return w.Extent / float64(w.Size)
}

// Coord is the physical coordinate of sample i along either axis.
func (w *Wavefront) Coord(i int) float64 {
	return pixelCoord(i, w.Extent, w.Size)
}

// ApplyMask blocks the field wherever the mask is opaque.
func (w *Wavefront) ApplyMask(m *Mask) error {
	if m == nil || m.Size != w.Size {
		got := 0
		if m != nil {
			got = m.Size
		}
		return fmt.Errorf("%w: mask is %d pixels wide, wavefront %d", ErrShapeMismatch, got, w.Size)
	}
	for i, row := range w.Field {
		for j := range row {
			if !m.Pix[i][j] {
				row[j] = 0
			}
		}
	}
	return nil
}

// TotalEnergy returns the sum of |field|² over the grid.
func (w *Wavefront) TotalEnergy() float64 {
	e := 0.0
	for _, row := range w.Field {
		for _, v := range row {
			e += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return e
}

// Intensity returns |field|².
func (w *Wavefront) Intensity() [][]float64 {
	return w.mapField(func(v complex128) float64 {
		return real(v)*real(v) + imag(v)*imag(v)
	})
}

// Modulus returns |field|.
func (w *Wavefront) Modulus() [][]float64 {
	return w.mapField(cmplx.Abs)
}

// Log10Modulus returns log10(|field|); samples with zero field give -Inf.
func (w *Wavefront) Log10Modulus() [][]float64 {
	return w.mapField(func(v complex128) float64 {
		return math.Log10(cmplx.Abs(v))
	})
}

// Clone returns a deep copy.
func (w *Wavefront) Clone() *Wavefront {
	c := *w
	c.Field = makeComplex2D(w.Size, w.Size)
	for i := range w.Field {
		copy(c.Field[i], w.Field[i])
	}
	return &c
}

func (w *Wavefront) mapField(fn func(complex128) float64) [][]float64 {
	out := make([][]float64, w.Size)
	for i, row := range w.Field {
		out[i] = make([]float64, w.Size)
		for j, v := range row {
			out[i][j] = fn(v)
		}
	}
	return out
}

// mulSeparable multiplies sample (row, col) by rowFactor[row]*colFactor[col].
func (w *Wavefront) mulSeparable(rowFactor, colFactor []complex128, workers int) error {
	return forEachBand(w.Size, workers, func(first, last int) error {
		for row := first; row < last; row++ {
			fr := rowFactor[row]
			line := w.Field[row]
			for col := range line {
				line[col] *= fr * colFactor[col]
			}
		}
		return nil
	})
}
