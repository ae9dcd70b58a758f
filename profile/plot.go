package profile

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// StepTicks places ticks at multiples of Step.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	if !(t.Step > 0) {
		return nil
	}
	var ticks []plot.Tick
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(t.Format, v)})
	}
	return ticks
}

func setFonts(p *plot.Plot) {
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)
}

// Plot draws a profile normalized to its peak, positions in millimeters, and returns it as
// a wPx x hPx image.
func Plot(points []Point, title string, wPx, hPx float64) (image.Image, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("profile has %d points, need at least 2", len(points))
	}
	s := Summarize(points)
	norm := 1.0
	if s.Peak > 0 {
		norm = 1 / s.Peak
	}

	p := plot.New()
	setFonts(p)
	p.Y.Min = -0.05
	p.Y.Max = 1.1

	first, last := points[0].Position*1e3, points[len(points)-1].Position*1e3
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("position along cut (mm), FWHM %.4g mm", s.FWHM*1e3)
	p.Y.Label.Text = "normalized intensity"
	p.X.Tick.Marker = StepTicks{Step: niceStep((last - first) / 10), Format: "%.3g"}
	p.Y.Tick.Marker = StepTicks{Step: 0.1, Format: "%.1f"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X = pt.Position * 1e3
		pts[i].Y = pt.Intensity * norm
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	half, err := plotter.NewLine(plotter.XYs{{X: first, Y: 0.5}, {X: last, Y: 0.5}})
	if err != nil {
		return nil, err
	}
	half.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	half.Color = color.RGBA{R: 255, A: 255}
	p.Add(half)

	const dpi = 96
	c := vgimg.New(vg.Length(wPx)*vg.Inch/dpi, vg.Length(hPx)*vg.Inch/dpi)
	p.Draw(draw.New(c))
	return c.Image(), nil
}

// niceStep rounds a raw tick step to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if !(raw > 0) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f < 1.5:
		return exp
	case f < 3.5:
		return 2 * exp
	case f < 7.5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

// SavePlot renders Plot into a PNG file.
func SavePlot(filename string, points []Point, title string, wPx, hPx float64) (err error) {
	img, err := Plot(points, title, wPx, hPx)
	if err != nil {
		return err
	}
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
