// Package raster turns scalar matrices into colormapped RGBA images.
package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/lighttransport/tinyplotlib/pkg/colormap"
)

var (
	// ErrEmpty is returned for a matrix or strip with a non-positive dimension.
	ErrEmpty = errors.New("raster: width and height must be positive")
	// ErrShape is returned when the data length does not match width*height.
	ErrShape = errors.New("raster: data length does not match dimensions")
)

// Matrix is a row-major grid of scalars, top row first.
// Values are unbounded; they are clamped to [0, 1] when rasterized.
type Matrix struct {
	Width  int
	Height int
	Data   []float32
}

// NewMatrix wraps data as a width x height matrix. The slice is not copied.
func NewMatrix(width, height int, data []float32) (Matrix, error) {
	if width <= 0 || height <= 0 {
		return Matrix{}, fmt.Errorf("%w: got %dx%d", ErrEmpty, width, height)
	}
	if !fits(len(data), width, height) {
		return Matrix{}, fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(data), width, height)
	}
	return Matrix{Width: width, Height: height, Data: data}, nil
}

// fits reports whether n == width*height without overflowing.
func fits(n, width, height int) bool {
	return n%width == 0 && n/width == height
}

// At returns the value in column x of row y.
func (m Matrix) At(x, y int) float32 {
	return m.Data[y*m.Width+x]
}

func (m Matrix) validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrEmpty, m.Width, m.Height)
	}
	if !fits(len(m.Data), m.Width, m.Height) {
		return fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(m.Data), m.Width, m.Height)
	}
	return nil
}

// Rasterize maps every element of m through the colormap k.
// The result has one opaque pixel per element.
//
// NaN and -Inf map like 0, +Inf maps like 1.
func Rasterize(m Matrix, k colormap.Kind) (*image.RGBA, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		c := k.Sample(float64(v)).RGBA()
		p := img.Pix[4*i : 4*i+4 : 4*i+4]
		p[0] = c.R
		p[1] = c.G
		p[2] = c.B
		p[3] = 255
	}
	return img, nil
}

// Gradient returns an n x 1 strip sampling k at i/(n-1) for i in 0..n-1,
// so both endpoints appear. A single-pixel strip samples 0.
func Gradient(n int, k colormap.Kind) (*image.RGBA, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: gradient of length %d", ErrEmpty, n)
	}
	data := make([]float32, n)
	if n > 1 {
		for i := range data {
			data[i] = float32(float64(i) / float64(n-1))
		}
	}
	return Rasterize(Matrix{Width: n, Height: 1, Data: data}, k)
}

// Range returns the smallest and largest finite values of m.
// ok is false if m holds no finite value.
func Range(m Matrix) (lo, hi float32, ok bool) {
	for _, v := range m.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, ok
}

// Normalize returns a copy of m with [lo, hi] mapped affinely onto [0, 1].
// Values outside the range are kept (they clamp when rasterized).
// If hi <= lo every non-NaN value maps to 0.
func Normalize(m Matrix, lo, hi float32) Matrix {
	out := Matrix{Width: m.Width, Height: m.Height, Data: make([]float32, len(m.Data))}
	span := float64(hi) - float64(lo)
	for i, v := range m.Data {
		f := float64(v)
		switch {
		case math.IsNaN(f):
			out.Data[i] = v
		case span <= 0:
			out.Data[i] = 0
		default:
			out.Data[i] = float32((f - float64(lo)) / span)
		}
	}
	return out
}
