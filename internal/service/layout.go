package service

import (
	"fmt"

	"github.com/lighttransport/tinyplotlib/pkg/plot"
)

// Layout room, in pixels, for the colorbar beside the matrix and the title
// below it.
const (
	colorbarRoom      = 88
	colorbarMinLength = 128
	titleRoom         = 24
)

// TitleSize is the font size of figure titles.
const TitleSize = 14

// LayoutOptions describes the figure a matrix is drawn into.
type LayoutOptions struct {
	// MinWidth and MinHeight are lower bounds; the figure grows past them
	// to fit the matrix.
	MinWidth  int
	MinHeight int
	MarginX   float64
	MarginY   float64
	// Scale is the preferred element size; zero means plot.DefaultScale.
	Scale    int
	Colorbar bool
	Title    bool
}

// Layout is a fitted figure.
type Layout struct {
	Width  int
	Height int
	Scale  int
	// TitleX and TitleY are the title origin and baseline.
	TitleX, TitleY float64
}

// FitLayout returns the figure size and element scale for a w x h matrix.
// The scale shrinks, down to 1, until the figure fits in MaxCanvas.
func FitLayout(w, h int, o LayoutOptions) (Layout, error) {
	if w <= 0 || h <= 0 || w > MaxCanvas || h > MaxCanvas {
		return Layout{}, fmt.Errorf("%w: %dx%d matrix does not fit in %dpx", ErrInvalidRequest, w, h, MaxCanvas)
	}
	scale := o.Scale
	if scale <= 0 {
		scale = plot.DefaultScale
	}
	mx, my := int(o.MarginX), int(o.MarginY)
	extraW, extraH, minH := 0, 0, 0
	if o.Colorbar {
		extraW = colorbarRoom
		minH = 2*my + colorbarMinLength
	}
	if o.Title {
		extraH = titleRoom
	}

	for ; scale >= 1; scale-- {
		width := max(o.MinWidth, 2*mx+w*scale+extraW)
		height := max(o.MinHeight, minH, 2*my+h*scale+extraH)
		if width <= MaxCanvas && height <= MaxCanvas {
			return Layout{
				Width:  width,
				Height: height,
				Scale:  scale,
				TitleX: o.MarginX,
				TitleY: o.MarginY + float64(h*scale) + titleRoom - 6,
			}, nil
		}
	}
	return Layout{}, fmt.Errorf("%w: %dx%d matrix does not fit in %dpx", ErrInvalidRequest, w, h, MaxCanvas)
}
