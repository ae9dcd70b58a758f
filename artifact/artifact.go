// Package artifact converts masks and wavefronts to and from FITS files and names the files
// a run leaves in its output directory.
package artifact

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

// File name prefixes of the saved products.
const (
	MaskPrefix         = "FresnelArray"
	ComplexPrefix      = "WavefrontComplex"
	ModulusPrefix      = "WavefrontModule"
	Log10ModulusPrefix = "WavefrontLog10Module"
)

// ErrNotAMask and ErrNotAWavefront report FITS files holding something else.
var (
	ErrNotAMask      = errors.New("not a Fresnel array mask")
	ErrNotAWavefront = errors.New("not a wavefront")
)

// TimestampedName returns prefix_YYYYmmdd_HHMMSS.fits.
func TimestampedName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format("20060102_150405") + ".fits"
}

// SpecCards returns the header cards identifying a Fresnel array.
func SpecCards(s fresnel.ZonePlateSpec) []fitsio.Card {
	return []fitsio.Card{
		{Name: "WIDTH", Value: s.Width, Comment: "Width of the grid"},
		{Name: "NZONES", Value: s.Zones, Comment: "Number of Fresnel areas"},
		{Name: "OBSTR", Value: s.Obstruction, Comment: "Central obstruction"},
		{Name: "OFFSET", Value: s.Offset, Comment: "Central offset"},
		{Name: "LAMBDA", Value: s.Wavelength, Comment: "Wavelength"},
		{Name: "DUTY", Value: s.Duty, Comment: "Half width of a ring in zones"},
		{Name: "BARTHICK", Value: s.BarThickness, Comment: "Thickness of the support bars"},
		{Name: "BARSPACE", Value: s.BarSpacing, Comment: "Distance between support bars"},
	}
}

// SpecFromHeader reads the parameters written by SpecCards. Files without a DUTY card were
// written for the default duty cycle, files without bar cards have no support bars.
func SpecFromHeader(h *fitsio.Header) (fresnel.ZonePlateSpec, error) {
	var s fresnel.ZonePlateSpec
	var err error
	if s.Width, err = cardFloat(h, "WIDTH"); err != nil {
		return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
	}
	if s.Zones, err = cardInt(h, "NZONES"); err != nil {
		return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
	}
	if s.Obstruction, err = cardFloat(h, "OBSTR"); err != nil {
		return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
	}
	if s.Offset, err = cardFloat(h, "OFFSET"); err != nil {
		return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
	}
	if s.Wavelength, err = cardFloat(h, "LAMBDA"); err != nil {
		return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
	}

	optional := []struct {
		key string
		dst *float64
		def float64
	}{
		{"DUTY", &s.Duty, fresnel.DefaultDuty},
		{"BARTHICK", &s.BarThickness, 0},
		{"BARSPACE", &s.BarSpacing, 0},
	}
	for _, o := range optional {
		*o.dst = o.def
		if h.Get(o.key) == nil {
			continue
		}
		if *o.dst, err = cardFloat(h, o.key); err != nil {
			return s, fmt.Errorf("%w: %v", ErrNotAMask, err)
		}
	}
	return s, nil
}

// Matches reports whether a header describes exactly the mask of spec on a size x size grid.
func Matches(h *fitsio.Header, spec fresnel.ZonePlateSpec, size int) bool {
	axes := h.Axes()
	if h.Bitpix() != 8 || len(axes) != 2 || axes[0] != size || axes[1] != size {
		return false
	}
	got, err := SpecFromHeader(h)
	return err == nil && got == spec
}

// EncodeMask returns m as a FITS file: an unsigned byte image of 0/1 values described by
// its spec.
func EncodeMask(m *fresnel.Mask) ([]byte, error) {
	pix := make([]byte, m.Size*m.Size)
	for row, line := range m.Pix {
		for col, v := range line {
			if v {
				pix[row*m.Size+col] = 1
			}
		}
	}
	return encodeImage(8, []int{m.Size, m.Size}, SpecCards(m.Spec), pix)
}

// DecodeMask rebuilds a mask from a file written by EncodeMask.
func DecodeMask(data []byte) (*fresnel.Mask, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return MaskFromImage(img)
}

// MaskFromImage rebuilds a mask from a decoded mask file.
func MaskFromImage(img *Image) (*fresnel.Mask, error) {
	if len(img.Axes) != 2 || img.Axes[0] != img.Axes[1] {
		return nil, fmt.Errorf("%w: axes %v are not a square", ErrNotAMask, img.Axes)
	}
	spec, err := SpecFromHeader(img.Header)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m, err := fresnel.NewMask(spec, img.Axes[0])
	if err != nil {
		return nil, err
	}
	for row := range m.Pix {
		for col := range m.Pix[row] {
			m.Pix[row][col] = img.At(col, row) != 0
		}
	}
	return m, nil
}

func wavefrontCards(w *fresnel.Wavefront) []fitsio.Card {
	return []fitsio.Card{
		{Name: "TYPE", Value: "WAVEFRONT", Comment: "Mask or wavefront"},
		{Name: "LAMBDA", Value: w.Wavelength, Comment: "Wavelength"},
		{Name: "SIZE", Value: w.Extent, Comment: "Size of the wavefront"},
	}
}

// EncodeWavefrontComplex stores the field as two double planes: real part, then imaginary part.
func EncodeWavefrontComplex(w *fresnel.Wavefront) ([]byte, error) {
	plane := w.Size * w.Size
	pix := make([]float64, 2*plane)
	for row, line := range w.Field {
		for col, v := range line {
			pix[row*w.Size+col] = real(v)
			pix[plane+row*w.Size+col] = imag(v)
		}
	}
	return encodeImage(-64, []int{w.Size, w.Size, 2}, wavefrontCards(w), pix)
}

// EncodeWavefrontModulus stores |field| as doubles. NAXIS1 runs along the columns (x), as in
// mask files; files of the earlier Python tool hold the transposed plane.
func EncodeWavefrontModulus(w *fresnel.Wavefront) ([]byte, error) {
	pix := make([]float64, 0, w.Size*w.Size)
	for _, row := range w.Modulus() {
		pix = append(pix, row...)
	}
	return encodeImage(-64, []int{w.Size, w.Size}, wavefrontCards(w), pix)
}

// EncodeWavefrontLog10Modulus stores log10|field| scaled onto 0..255 between its finite
// minimum and maximum. BSCALE and BZERO recover the logarithm; zero field maps to 0.
// NAXIS1 runs along the columns (x), as in mask files; files of the earlier Python tool hold
// the transposed plane.
func EncodeWavefrontLog10Modulus(w *fresnel.Wavefront) ([]byte, error) {
	logMod := w.Log10Modulus()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range logMod {
		for _, v := range row {
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	scale := (hi - lo) / 255
	if scale == 0 {
		scale = 1
	}

	pix := make([]byte, w.Size*w.Size)
	for row, line := range logMod {
		for col, v := range line {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			pix[row*w.Size+col] = uint8(math.Max(0, math.Min(255, math.Round((v-lo)/scale))))
		}
	}
	cards := append(wavefrontCards(w),
		fitsio.Card{Name: "BSCALE", Value: scale},
		fitsio.Card{Name: "BZERO", Value: lo},
	)
	return encodeImage(8, []int{w.Size, w.Size}, cards, pix)
}

// DecodeWavefrontComplex rebuilds a wavefront saved by EncodeWavefrontComplex.
func DecodeWavefrontComplex(data []byte) (*fresnel.Wavefront, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if typ, err := cardString(img.Header, "TYPE"); err != nil || typ != "WAVEFRONT" {
		return nil, fmt.Errorf("%w: TYPE card is missing or not WAVEFRONT", ErrNotAWavefront)
	}
	if len(img.Axes) != 3 || img.Axes[0] != img.Axes[1] || img.Axes[2] != 2 {
		return nil, fmt.Errorf("%w: axes %v are not two square planes", ErrNotAWavefront, img.Axes)
	}
	lambda, err := cardFloat(img.Header, "LAMBDA")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAWavefront, err)
	}
	extent, err := cardFloat(img.Header, "SIZE")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAWavefront, err)
	}
	w, err := fresnel.NewWavefront(lambda, img.Axes[0], extent)
	if err != nil {
		return nil, err
	}
	for row, line := range w.Field {
		for col := range line {
			line[col] = complex(img.At(col, row, 0), img.At(col, row, 1))
		}
	}
	return w, nil
}

// WriteMask saves m into the named FITS file.
func WriteMask(name string, m *fresnel.Mask) error {
	data, err := EncodeMask(m)
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0644)
}

// ReadMask loads a mask saved by WriteMask.
func ReadMask(name string) (*fresnel.Mask, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	m, err := DecodeMask(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}
