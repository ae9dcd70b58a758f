package profile

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// DrawCut copies src and draws the cut on it: a red line, a red dot at the start and a
// green dot at the end.
func DrawCut(src image.Image, c *Cut) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	red := color.RGBA{R: 255, A: 255}
	drawLine(out, c.StartX, c.StartY, c.EndX, c.EndY, red)
	drawDot(out, c.StartX, c.StartY, 5, red)
	drawDot(out, c.EndX, c.EndY, 5, color.RGBA{G: 255, A: 255})
	return out
}

// drawLine draws a 3-pixel wide line with Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, col color.Color) {
	x1, y1 = math.Round(x1), math.Round(y1)
	x2, y2 = math.Round(x2), math.Round(y2)
	dx := math.Abs(x2 - x1)
	dy := math.Abs(y2 - y1)
	sx, sy := -1.0, -1.0
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	e := dx - dy

	for {
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				setInside(img, int(x1)+ox, int(y1)+oy, col)
			}
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x1 += sx
		}
		if e2 < dx {
			e += dx
			y1 += sy
		}
	}
}

func drawDot(img *image.RGBA, cx, cy float64, radius int, col color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				setInside(img, int(math.Round(cx))+x, int(math.Round(cy))+y, col)
			}
		}
	}
}

func setInside(img *image.RGBA, x, y int, col color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, col)
	}
}
