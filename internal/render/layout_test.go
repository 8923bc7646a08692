package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/pkg/colormap"
)

func TestTickLabel(t *testing.T) {
	cases := map[float64]string{
		0:    "0.0",
		0.1:  "0.1",
		0.25: "0.25",
		0.5:  "0.5",
		1:    "1.0",
	}
	for v, want := range cases {
		if got := TickLabel(v); got != want {
			t.Errorf("TickLabel(%v) = %q, want %q", v, got, want)
		}
	}
	if got := TickLabel(3.0 / 10); got != "0.3" {
		t.Errorf("TickLabel(3/10) = %q", got)
	}
}

func TestColorbarTicks(t *testing.T) {
	c := newTestComposer(t, Config{Width: 512, Height: 512, Margin: pt(8, 8)})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	layout, err := c.Colorbar(colormap.Viridis, 10)
	if err != nil {
		t.Fatalf("Colorbar: %v", err)
	}
	if len(layout.Ticks) != 11 {
		t.Fatalf("got %d ticks, want 11", len(layout.Ticks))
	}
	want := []string{"0.0", "0.1", "0.2", "0.3", "0.4", "0.5", "0.6", "0.7", "0.8", "0.9", "1.0"}
	for i, tick := range layout.Ticks {
		if tick.Label != want[i] {
			t.Errorf("tick %d label = %q, want %q", i, tick.Label, want[i])
		}
	}
	bar := layout.Bar
	if first, last := layout.Ticks[0].Y, layout.Ticks[10].Y; first != bar.Y+bar.H || last != bar.Y {
		t.Errorf("ticks span %v..%v, bar %+v", first, last, bar)
	}
	if bar.H != 256 || bar.W != 16 || bar.X != 512-72 || bar.Y != 8 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestColorbarPixels(t *testing.T) {
	c := newTestComposer(t, Config{Width: 512, Height: 512, Margin: pt(8, 8)})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	layout, err := c.Colorbar(colormap.Inferno, 5)
	if err != nil {
		t.Fatalf("Colorbar: %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	bar := layout.Bar
	cx := int(bar.X) + 8
	bottom := int(bar.Y+bar.H) - 1
	top := int(bar.Y)
	if got, want := img.RGBAAt(cx, bottom), colormap.Inferno.Sample(0).RGBA(); got != want {
		t.Errorf("bottom of bar = %v, want %v", got, want)
	}
	if got, want := img.RGBAAt(cx, top), colormap.Inferno.Sample(1).RGBA(); got != want {
		t.Errorf("top of bar = %v, want %v", got, want)
	}
	if got := img.RGBAAt(int(bar.X)-1, top+20); got != borderColor {
		t.Errorf("left border = %v, want %v", got, borderColor)
	}
	if got := img.RGBAAt(cx, top-1); got != borderColor {
		t.Errorf("top border = %v, want %v", got, borderColor)
	}

	strip, ok := c.Slot(SlotColorbar)
	if !ok || strip.Bounds().Dx() != int(bar.H) || strip.Bounds().Dy() != 1 {
		t.Fatalf("colorbar slot = %v, %v", strip, ok)
	}
}

func TestColorbarTooSmall(t *testing.T) {
	c := newTestComposer(t, Config{Width: 100, Height: 16, Margin: pt(8, 8)})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := c.Colorbar(colormap.Viridis, 10); !errors.Is(err, raster.ErrEmpty) {
		t.Fatalf("expected raster.ErrEmpty, got %v", err)
	}
}

func TestMatshowScaleAndReplace(t *testing.T) {
	c := newTestComposer(t, Config{Width: 64, Height: 64, Margin: pt(8, 8)})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m := raster.Matrix{Width: 2, Height: 2, Data: []float32{0, 1, 1, 0}}
	dst, err := c.Matshow(m, colormap.Jet, 0)
	if err != nil {
		t.Fatalf("Matshow: %v", err)
	}
	if dst != (Rect{X: 8, Y: 8, W: 8, H: 8}) {
		t.Fatalf("dst = %+v", dst)
	}
	first, _ := c.Slot(SlotMatrix)

	if _, err := c.Matshow(m, colormap.Jet, 3); err != nil {
		t.Fatalf("Matshow: %v", err)
	}
	second, _ := c.Slot(SlotMatrix)
	if first == second {
		t.Fatalf("matrix slot was not replaced")
	}

	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	lo := color.RGBA{0, 0, 128, 255}
	hi := color.RGBA{128, 0, 0, 255}
	// The second call painted 3px elements over the 4px ones.
	if got := img.RGBAAt(8, 8); got != lo {
		t.Errorf("(8,8) = %v", got)
	}
	if got := img.RGBAAt(11, 8); got != hi {
		t.Errorf("(11,8) = %v, want %v", got, hi)
	}
	if got := img.RGBAAt(14, 14); got != lo {
		t.Errorf("(14,14) = %v, want %v", got, lo)
	}
	// Remnant of the first 4px placement.
	if got := img.RGBAAt(15, 15); got != lo {
		t.Errorf("(15,15) = %v, want %v", got, lo)
	}
}

func TestMatshowRejectsEmpty(t *testing.T) {
	c := newTestComposer(t, Config{})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := c.Matshow(raster.Matrix{}, colormap.Viridis, 4); !errors.Is(err, raster.ErrEmpty) {
		t.Fatalf("expected raster.ErrEmpty, got %v", err)
	}
	if _, ok := c.Slot(SlotMatrix); ok {
		t.Fatalf("empty matrix registered a slot")
	}
}
