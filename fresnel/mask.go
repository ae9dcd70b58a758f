package fresnel

import (
	"fmt"
	"math"
)

// Mask is the binary transmission of a Fresnel array sampled on a Size x Size grid.
// Pix[row][col] is true where the array is transparent. The plate center sits on the
// corner shared by the four middle pixels, so the grid is mirror symmetric about both axes.
type Mask struct {
	Spec ZonePlateSpec
	Size int
	Pix  [][]bool
}

// NewMask returns an opaque mask of the given size.
func NewMask(spec ZonePlateSpec, size int) (*Mask, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	pix := make([][]bool, size)
	for i := range pix {
		pix[i] = make([]bool, size)
	}
	return &Mask{Spec: spec, Size: size, Pix: pix}, nil
}

// BuildMask computes the rings of spec and rasterizes them on a size x size grid.
func BuildMask(spec ZonePlateSpec, size, workers int) (*Mask, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	rings, err := BuildRings(spec)
	if err != nil {
		return nil, err
	}
	return Rasterize(rings, spec, size, workers)
}

// Rasterize classifies every pixel of a size x size grid spanning spec.Width against rings,
// then blocks the support bars of spec, if any.
//
// Only the upper-left quadrant is evaluated; every value is written to its three mirror
// partners as well. Rows of the quadrant are split into bands handled by up to workers
// goroutines (workers <= 0 means one per CPU).
func Rasterize(rings RingList, spec ZonePlateSpec, size, workers int) (*Mask, error) {
	m, err := NewMask(spec, size)
	if err != nil {
		return nil, err
	}
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: no ring to rasterize", ErrDegenerateGeometry)
	}

	err = forEachBand(size/2, workers, func(first, last int) error {
		m.scanRows(rings, first, last)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if spec.HasBars() {
		if err := m.blockBars(rings[0].Inner, workers); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// scanRows rasterizes quadrant rows [first, last).
//
// Within a row the scan starts at the column nearest the plate center and moves outward,
// so the radius never decreases and the ring cursor only moves forward. Each row starts
// from its edge cursor, the cursor of that first pixel, which is carried from row to row.
func (m *Mask) scanRows(rings RingList, first, last int) {
	edgeCol := m.Size/2 - 1
	edgeX := m.Coord(edgeCol)

	edge := -1
	for row := first; row < last; row++ {
		y := m.Coord(row)
		r := math.Sqrt(edgeX*edgeX + y*y)
		if edge < 0 {
			edge = rings.cursor(r)
		} else {
			edge = stepCursor(rings, edge, r)
		}

		k := edge
		for col := edgeCol; col >= 0; col-- {
			x := m.Coord(col)
			r = math.Sqrt(x*x + y*y)
			k = stepCursor(rings, k, r)
			m.setMirrored(row, col, rings.covers(k, r))
		}
	}
}

func (m *Mask) setMirrored(row, col int, v bool) {
	last := m.Size - 1
	m.Pix[row][col] = v
	m.Pix[row][last-col] = v
	m.Pix[last-row][col] = v
	m.Pix[last-row][last-col] = v
}

// barIndices marks the pixel rows (and, identically, columns) crossed by a support bar.
// Bars are centered at first, first+spacing, ... up to the half width, on both sides of
// each axis; a pixel belongs to a bar when its center lies within half a bar thickness of
// the bar center line.
func (m *Mask) barIndices(first float64) []bool {
	s := m.Spec
	bars := make([]bool, m.Size)
	for q := 0; q < m.Size/2; q++ {
		a := -m.Coord(q)
		k := math.Max(0, math.Round((a-first)/s.BarSpacing))
		d := first + k*s.BarSpacing
		if d < s.Width/2 && math.Abs(a-d) <= s.BarThickness/2 {
			bars[q] = true
			bars[m.Size-1-q] = true
		}
	}
	return bars
}

// blockBars makes every bar row and bar column opaque.
func (m *Mask) blockBars(first float64, workers int) error {
	bars := m.barIndices(first)
	return forEachBand(m.Size, workers, func(lo, hi int) error {
		for row := lo; row < hi; row++ {
			line := m.Pix[row]
			for col := range line {
				if bars[row] || bars[col] {
					line[col] = false
				}
			}
		}
		return nil
	})
}

// Pitch is the physical side of a pixel (m).
func (m *Mask) Pitch() float64 {
	return m.Spec.Width / float64(m.Size)
}

// Coord is the physical coordinate of the center of pixel i along either axis.
func (m *Mask) Coord(i int) float64 {
	return pixelCoord(i, m.Spec.Width, m.Size)
}

// TransparentFraction is the fraction of pixels letting light through.
func (m *Mask) TransparentFraction() float64 {
	n := 0
	for _, row := range m.Pix {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return float64(n) / float64(m.Size*m.Size)
}

// Equal reports whether both masks were built from the same parameters and hold the same grid.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Spec != o.Spec || m.Size != o.Size {
		return false
	}
	for i := range m.Pix {
		for j := range m.Pix[i] {
			if m.Pix[i][j] != o.Pix[i][j] {
				return false
			}
		}
	}
	return true
}

// Float returns the mask as 0/1 values.
func (m *Mask) Float() [][]float64 {
	out := make([][]float64, m.Size)
	for i, row := range m.Pix {
		out[i] = make([]float64, m.Size)
		for j, v := range row {
			if v {
				out[i][j] = 1
			}
		}
	}
	return out
}

// pixelCoord maps pixel index i of an n-pixel axis spanning extent to the pixel center.
func pixelCoord(i int, extent float64, n int) float64 {
	pitch := extent / float64(n)
	return float64(i)*pitch - (extent-pitch)/2
}
