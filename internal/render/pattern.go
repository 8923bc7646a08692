package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// imagePattern samples an image through the inverse of
// origin + R(rotation)*scale*src, nearest neighbour, clamped to the edge.
// It is evaluated at device pixel centers.
type imagePattern struct {
	img      *image.RGBA
	origin   gg.Point
	cos, sin float64
	invScale float64
	invSS    float64
}

var _ gg.Pattern = (*imagePattern)(nil)

func newImagePattern(img *image.RGBA, origin gg.Point, scale, rotation, ss float64) *imagePattern {
	return &imagePattern{
		img:      img,
		origin:   origin,
		cos:      snap(math.Cos(rotation)),
		sin:      snap(math.Sin(rotation)),
		invScale: 1 / scale,
		invSS:    1 / ss,
	}
}

// snap removes the rounding residue of cos and sin at multiples of 90°.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}

func (p *imagePattern) ColorAt(x, y int) color.Color {
	dx := (float64(x)+0.5)*p.invSS - p.origin.X
	dy := (float64(y)+0.5)*p.invSS - p.origin.Y

	u := (p.cos*dx + p.sin*dy) * p.invScale
	v := (p.cos*dy - p.sin*dx) * p.invScale

	b := p.img.Bounds()
	sx := clampIndex(int(math.Floor(u)), b.Dx())
	sy := clampIndex(int(math.Floor(v)), b.Dy())
	return p.img.RGBAAt(b.Min.X+sx, b.Min.Y+sy)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
