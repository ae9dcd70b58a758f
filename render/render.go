// Package render turns float matrices and masks into PNG images: an auto-stretched 8-bit view
// for looking at, and a fixed-scale 16-bit image for measuring.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sort"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

var (
	ErrEmpty  = errors.New("empty matrix")
	ErrRagged = errors.New("ragged matrix")
)

// Gray16FullScale maps an intensity of 1 (the normalized peak) onto this 16-bit level,
// leaving headroom above it.
const Gray16FullScale = 4000

func checkShape(m [][]float64) (h, w int, err error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return 0, 0, ErrEmpty
	}
	h, w = len(m), len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return 0, 0, ErrRagged
		}
	}
	return h, w, nil
}

// Gray16 maps v to round(v*scale), clamped to [0, 65535]. Non-finite values become 0.
func Gray16(m [][]float64, scale float64) (*image.Gray16, error) {
	h, w, err := checkShape(m)
	if err != nil {
		return nil, err
	}
	if !(scale > 0) {
		return nil, errors.New("scale must be > 0")
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			u := uint16(math.Max(0, math.Min(65535, math.Round(v*scale))))

			// Gray16 pixels are big-endian
			i := row + 2*x
			img.Pix[i] = uint8(u >> 8)
			img.Pix[i+1] = uint8(u)
		}
	}
	return img, nil
}

// GrayPercentile stretches the pLow..pHigh percentile range of the finite values onto 0..255.
func GrayPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	h, w, err := checkShape(m)
	if err != nil {
		return nil, err
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	vals := make([]float64, 0, h*w)
	for _, row := range m {
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("matrix has no finite values")
	}
	sort.Float64s(vals)

	lo := percentile(vals, pLow)
	hi := percentile(vals, pHigh)
	if hi == lo {
		hi = lo + 1
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			t := math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
			img.Pix[row+x] = uint8(math.Round(t * 255))
		}
	}
	return img, nil
}

// percentile interpolates linearly within sorted.
func percentile(sorted []float64, p float64) float64 {
	last := len(sorted) - 1
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[last]
	}
	pos := p / 100 * float64(last)
	i := int(math.Floor(pos))
	if i >= last {
		return sorted[last]
	}
	f := pos - float64(i)
	return sorted[i]*(1-f) + sorted[i+1]*f
}

// PeakNormalized returns m divided by its largest finite value.
func PeakNormalized(m [][]float64) [][]float64 {
	peak := 0.0
	for _, row := range m {
		for _, v := range row {
			if !math.IsInf(v, 0) && v > peak {
				peak = v
			}
		}
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if peak > 0 {
				out[i][j] = v / peak
			}
		}
	}
	return out
}

// Mask draws transparent pixels white and opaque pixels black.
func Mask(m *fresnel.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Size, m.Size))
	for y, line := range m.Pix {
		row := y * img.Stride
		for x, v := range line {
			if v {
				img.Pix[row+x] = 255
			}
		}
	}
	return img
}

// SavePNG encodes img into the named file.
func SavePNG(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

// LoadGray16 reads a 16-bit grayscale PNG back into a matrix, dividing each level by scale.
func LoadGray16(filename string, scale float64) (m [][]float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	b := img.Bounds()
	m = make([][]float64, b.Dy())
	for y := range m {
		m[y] = make([]float64, b.Dx())
		for x := range m[y] {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			m[y][x] = float64(g.Y) / scale
		}
	}
	return m, nil
}
