package render

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/pkg/colormap"
)

// Layout constants for the colorbar, in external pixels.
const (
	DefaultTicks       = 10
	DefaultMatrixScale = 4

	colorbarRight  = 72
	colorbarWidth  = 16
	colorbarMaxLen = 256
	tickLength     = 4
	labelGap       = 3
	labelSize      = 10
)

var (
	borderColor = color.RGBA{64, 64, 64, 255}
	tickColor   = color.RGBA{32, 32, 32, 255}
)

// Tick is one colorbar tick mark.
type Tick struct {
	Value float64
	Label string
	Y     float64
}

// ColorbarLayout describes where a colorbar was painted.
type ColorbarLayout struct {
	Bar   Rect
	Ticks []Tick
}

// ColorbarRect returns the bar rectangle for the current canvas and margin.
// The bar sits colorbarRight pixels from the right edge and is at most
// colorbarMaxLen pixels long.
func (c *Composer) ColorbarRect() Rect {
	top := c.config.Margin.Y
	length := math.Min(colorbarMaxLen, float64(c.config.Height)-2*top)
	return Rect{
		X: float64(c.config.Width - colorbarRight),
		Y: top,
		W: colorbarWidth,
		H: math.Floor(length),
	}
}

// Colorbar paints a vertical gradient of k with t = 0 at the bottom, a
// border behind it, and numTicks+1 labelled ticks to its right.
func (c *Composer) Colorbar(k colormap.Kind, numTicks int) (ColorbarLayout, error) {
	if err := c.checkRecording(); err != nil {
		return ColorbarLayout{}, err
	}
	if numTicks <= 0 {
		numTicks = DefaultTicks
	}

	bar := c.ColorbarRect()
	strip, err := raster.Gradient(int(bar.H), k)
	if err != nil {
		return ColorbarLayout{}, err
	}

	border := Rect{X: bar.X - 1, Y: bar.Y - 1, W: bar.W + 2, H: bar.H + 2}
	if err := c.FillRect(border, borderColor); err != nil {
		return ColorbarLayout{}, err
	}

	// Rotated -90°: the strip's x axis runs up from the bottom-left corner.
	origin := gg.Point{X: bar.X, Y: bar.Y + bar.H}
	if err := c.PlaceImageAt(SlotColorbar, strip, bar, origin, 1, -math.Pi/2); err != nil {
		return ColorbarLayout{}, err
	}

	layout := ColorbarLayout{Bar: bar, Ticks: make([]Tick, 0, numTicks+1)}
	spacing := bar.H / float64(numTicks)
	x0 := bar.X + bar.W
	for i := 0; i <= numTicks; i++ {
		v := float64(i) / float64(numTicks)
		y := bar.Y + bar.H - float64(i)*spacing
		tick := Tick{Value: v, Label: TickLabel(v), Y: y}

		line := []gg.Point{{X: x0, Y: y}, {X: x0 + tickLength, Y: y}}
		if err := c.StrokePath(line, 1, tickColor); err != nil {
			return ColorbarLayout{}, err
		}
		if err := c.DrawText(tick.Label, x0+tickLength+labelGap, y+labelSize/2-1, labelSize); err != nil {
			return ColorbarLayout{}, err
		}
		layout.Ticks = append(layout.Ticks, tick)
	}
	return layout, nil
}

// TickLabel formats v with two significant digits, always with a decimal
// point: 0 -> "0.0", 0.25 -> "0.25", 1 -> "1.0".
func TickLabel(v float64) string {
	s := strconv.FormatFloat(v, 'g', 2, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Matshow rasterizes m with k and paints it at the margin, each element
// covering scale x scale pixels. A non-positive scale means DefaultMatrixScale.
func (c *Composer) Matshow(m raster.Matrix, k colormap.Kind, scale int) (Rect, error) {
	if err := c.checkRecording(); err != nil {
		return Rect{}, err
	}
	if scale <= 0 {
		scale = DefaultMatrixScale
	}
	img, err := raster.Rasterize(m, k)
	if err != nil {
		return Rect{}, err
	}
	dst := Rect{
		X: c.config.Margin.X,
		Y: c.config.Margin.Y,
		W: float64(m.Width * scale),
		H: float64(m.Height * scale),
	}
	if err := c.PlaceImage(SlotMatrix, img, dst, float64(scale), 0); err != nil {
		return Rect{}, err
	}
	return dst, nil
}
