// Package colormap provides color schemes for visualization.
//
// Every colormap is an analytic function of a normalized scalar: the
// matplotlib perceptual maps are degree-6 polynomial fits, jet is built from
// three shifted tent functions. Identical inputs always yield bit-identical
// outputs.
package colormap

import (
	"image/color"
	"math"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// Kind identifies one of the built-in colormaps.
type Kind uint8

const (
	Viridis Kind = iota
	Plasma
	Magma
	Inferno
	Jet
)

// Default is the colormap used when none, or an unknown one, is requested.
const Default = Viridis

var kindNames = [...]string{
	Viridis: "viridis",
	Plasma:  "plasma",
	Magma:   "magma",
	Inferno: "inferno",
	Jet:     "jet",
}

// Names returns the names of all built-in colormaps.
func Names() []string {
	out := make([]string, len(kindNames))
	copy(out, kindNames[:])
	return out
}

// Parse resolves a colormap name. Unknown names resolve to Default.
func Parse(name string) Kind {
	k, ok := Lookup(name)
	if !ok {
		return Default
	}
	return k
}

// Lookup resolves a colormap name and reports whether it is known.
func Lookup(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return Default, false
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Default]
}

// Sample is an RGB triple with components in [0, 1].
type Sample struct {
	R, G, B float64
}

// RGBA quantizes s to 8 bits per channel. Alpha is always opaque.
func (s Sample) RGBA() color.RGBA {
	return color.RGBA{R: quantize(s.R), G: quantize(s.G), B: quantize(s.B), A: 255}
}

func quantize(x float64) uint8 {
	return uint8(math.Round(Clamp(x) * 255))
}

// Clamp restricts t to [0, 1]. NaN maps to 0.
func Clamp(t float64) float64 {
	switch {
	case math.IsNaN(t), t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return t
}

// Sample evaluates the colormap at t, which is clamped to [0, 1] first.
func (k Kind) Sample(t float64) Sample {
	t = Clamp(t)

	var s Sample
	switch k {
	case Plasma:
		s = plasma.eval(t)
	case Magma:
		s = magma.eval(t)
	case Inferno:
		s = inferno.eval(t)
	case Jet:
		s = jet(t)
	default:
		s = viridis.eval(t)
	}

	// The polynomial fits overshoot slightly near the endpoints.
	s.R, s.G, s.B = Clamp(s.R), Clamp(s.G), Clamp(s.B)
	return s
}

// At returns the quantized color at position t.
func (k Kind) At(t float64) color.Color {
	return k.Sample(t).RGBA()
}

// SampleNamed evaluates the colormap called name at t.
func SampleNamed(name string, t float64) Sample {
	return Parse(name).Sample(t)
}
