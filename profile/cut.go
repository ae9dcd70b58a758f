// Package profile extracts intensity profiles from the observation plane along a straight
// cut through its center, and plots them.
package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrNoIntersection is returned when the cut misses the image.
var ErrNoIntersection = errors.New("line does not intersect square")

// SamplePoint is a position on the cut, in image pixels.
type SamplePoint struct {
	X, Y float64
}

// Point is one sample of an extracted profile.
type Point struct {
	Position  float64 // Signed distance from the image center along the cut (m)
	Intensity float64
}

// Cut is a straight line across a Size x Size image spanning Extent meters.
// The angle turns from the column axis toward the row axis, the frame of the source azimuth,
// so the image of a tilted source at azimuth a lies on the cut at angle a.
type Cut struct {
	AngleDegrees float64
	OffsetPx     float64 // Perpendicular distance of the line from the image center (pixels)
	Size         int
	Extent       float64

	StartX, StartY float64
	EndX, EndY     float64
	Samples        []SamplePoint
}

// NewCut intersects the line with the image boundary and samples it at 1-pixel steps,
// running in the direction of the angle.
func NewCut(size int, extent, angleDeg, offsetPx float64) (*Cut, error) {
	if size < 2 {
		return nil, fmt.Errorf("cut needs an image of at least 2 pixels, got %d", size)
	}
	c := &Cut{AngleDegrees: angleDeg, OffsetPx: offsetPx, Size: size, Extent: extent}

	theta := angleDeg * math.Pi / 180
	p1, p2, err := squareIntersections(float64(size-1), theta, offsetPx)
	if err != nil {
		return nil, fmt.Errorf("cut at %g deg: %w", angleDeg, err)
	}

	// Move the origin from the center to pixel (0, 0)
	center := float64(size-1) / 2
	dx, dy := math.Cos(theta), math.Sin(theta)
	if p1.X*dx+p1.Y*dy > p2.X*dx+p2.Y*dy {
		p1, p2 = p2, p1
	}
	c.StartX, c.StartY = center+p1.X, center+p1.Y
	c.EndX, c.EndY = center+p2.X, center+p2.Y

	c.computeSamples()
	return c, nil
}

func (c *Cut) computeSamples() {
	xLength := c.EndX - c.StartX
	yLength := c.EndY - c.StartY
	length := math.Hypot(xLength, yLength)

	c.Samples = nil
	if length == 0 {
		c.Samples = append(c.Samples, SamplePoint{X: c.StartX, Y: c.StartY})
		return
	}
	dx := xLength / length
	dy := yLength / length
	for i := 0; i <= int(math.Floor(length)); i++ {
		k := float64(i)
		c.Samples = append(c.Samples, SamplePoint{X: c.StartX + k*dx, Y: c.StartY + k*dy})
	}
}

// Pitch is the physical size of one pixel (m).
func (c *Cut) Pitch() float64 {
	return c.Extent / float64(c.Size)
}

// position projects a pixel position on the cut direction, relative to the image center.
func (c *Cut) position(s SamplePoint) float64 {
	theta := c.AngleDegrees * math.Pi / 180
	center := float64(c.Size-1) / 2
	return ((s.X-center)*math.Cos(theta) + (s.Y-center)*math.Sin(theta)) * c.Pitch()
}

type edgePoint struct {
	X, Y float64
}

// squareIntersections finds where the line at angle theta, offset d from the origin along
// its left normal, crosses the border of a square of side w centered on the origin.
func squareIntersections(w, theta, d float64) (edgePoint, edgePoint, error) {
	const tol = 1e-9
	half := w / 2
	lo, hi := -half-tol, half+tol
	dx, dy := math.Cos(theta), math.Sin(theta)
	x0, y0 := -d*dy, d*dx

	var pts []edgePoint
	add := func(p edgePoint) {
		for _, q := range pts {
			if math.Abs(p.X-q.X) < tol && math.Abs(p.Y-q.Y) < tol {
				return
			}
		}
		pts = append(pts, p)
	}
	if math.Abs(dx) > 1e-12 {
		for _, x := range []float64{half, -half} {
			y := y0 + (x-x0)/dx*dy
			if y >= lo && y <= hi {
				add(edgePoint{x, y})
			}
		}
	}
	if math.Abs(dy) > 1e-12 {
		for _, y := range []float64{half, -half} {
			x := x0 + (y-y0)/dy*dx
			if x >= lo && x <= hi {
				add(edgePoint{x, y})
			}
		}
	}
	if len(pts) < 2 {
		return edgePoint{}, edgePoint{}, ErrNoIntersection
	}
	return pts[0], pts[1], nil
}

// interpolate samples matrix bilinearly at column x, row y, clamping to the border.
func interpolate(matrix [][]float64, x, y float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return matrix[0][0]
	}
	limit := float64(n-1) - 1e-9
	x = math.Max(0, math.Min(x, limit))
	y = math.Max(0, math.Min(y, limit))

	x0, y0 := int(x), int(y)
	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v0 := matrix[y0][x0]*(1-xFrac) + matrix[y0][x0+1]*xFrac
	v1 := matrix[y0+1][x0]*(1-xFrac) + matrix[y0+1][x0+1]*xFrac
	return v0*(1-yFrac) + v1*yFrac
}

// Extract samples intensity along the cut.
func Extract(intensity [][]float64, c *Cut) ([]Point, error) {
	if len(intensity) != c.Size {
		return nil, fmt.Errorf("cut is for a %d pixel image, got %d rows", c.Size, len(intensity))
	}
	out := make([]Point, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = Point{Position: c.position(s), Intensity: interpolate(intensity, s.X, s.Y)}
	}
	return out, nil
}

// Summary describes the main lobe of a profile.
type Summary struct {
	Peak         float64
	PeakPosition float64 // (m)
	Mean         float64
	FWHM         float64 // Full width at half maximum of the lobe around the peak (m)
}

// Summarize locates the peak of a profile and measures its width at half maximum,
// interpolating linearly between samples.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Intensity
	}
	peakIdx := floats.MaxIdx(vals)
	s := Summary{
		Peak:         vals[peakIdx],
		PeakPosition: points[peakIdx].Position,
		Mean:         floats.Sum(vals) / float64(len(vals)),
	}

	half := s.Peak / 2
	left, right := points[0].Position, points[len(points)-1].Position
	for i := peakIdx; i > 0; i-- {
		if vals[i-1] < half {
			left = crossing(points[i-1], points[i], half)
			break
		}
	}
	for i := peakIdx; i < len(points)-1; i++ {
		if vals[i+1] < half {
			right = crossing(points[i], points[i+1], half)
			break
		}
	}
	s.FWHM = math.Abs(right - left)
	return s
}

func crossing(a, b Point, level float64) float64 {
	if a.Intensity == b.Intensity {
		return a.Position
	}
	t := (level - a.Intensity) / (b.Intensity - a.Intensity)
	return a.Position + t*(b.Position-a.Position)
}
