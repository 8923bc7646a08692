package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/fogleman/gg"
)

func newTestComposer(t *testing.T, cfg Config) *Composer {
	t.Helper()
	if cfg.Width == 0 {
		cfg.Width = 128
	}
	if cfg.Height == 0 {
		cfg.Height = 96
	}
	c, err := NewComposer(cfg)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewComposerRejectsEmptyCanvas(t *testing.T) {
	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if _, err := NewComposer(Config{Width: size[0], Height: size[1]}); !errors.Is(err, ErrGeometry) {
			t.Fatalf("size %v: expected ErrGeometry, got %v", size, err)
		}
	}
}

func TestNewComposerRejectsHugeCanvas(t *testing.T) {
	cases := []Config{
		{Width: 1 << 31, Height: 1 << 31},
		{Width: MaxDeviceSize + 1, Height: 1},
		{Width: 64, Height: 64, Supersample: MaxDeviceSize},
		{Width: MaxDeviceSize / 2, Height: 1, Supersample: 3},
	}
	for _, cfg := range cases {
		if _, err := NewComposer(cfg); !errors.Is(err, ErrGeometry) {
			t.Fatalf("%dx%d ss %d: expected ErrGeometry, got %v", cfg.Width, cfg.Height, cfg.Supersample, err)
		}
	}
}

func TestFinalizeAveragesSupersampleBlocks(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	c := newTestComposer(t, Config{Width: 4, Height: 4, Supersample: 3})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// One device column out of three in pixel (1,1); all of pixel (2,2).
	if err := c.FillRect(Rect{1, 1, 1.0 / 3, 1}, red); err != nil {
		t.Fatalf("FillRect: %v", err)
	}
	if err := c.FillRect(Rect{2, 2, 1, 1}, red); err != nil {
		t.Fatalf("FillRect: %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got, want := img.RGBAAt(1, 1), (color.RGBA{255, 170, 170, 255}); got != want {
		t.Errorf("partial block = %v, want %v", got, want)
	}
	if got := img.RGBAAt(2, 2); got != red {
		t.Errorf("full block = %v, want %v", got, red)
	}
	// Neighbours of a full block are untouched.
	white := color.RGBA{255, 255, 255, 255}
	for _, p := range []image.Point{{3, 2}, {2, 3}, {3, 3}, {0, 0}} {
		if got := img.RGBAAt(p.X, p.Y); got != white {
			t.Errorf("pixel %v = %v, want white", p, got)
		}
	}
}

func TestBeginClearsToBackground(t *testing.T) {
	bg := color.RGBA{10, 20, 30, 255}
	c := newTestComposer(t, Config{Width: 16, Height: 8, Background: bg})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("bounds = %v", b)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if got := img.RGBAAt(x, y); got != bg {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, bg)
			}
		}
	}
}

func TestStateMachine(t *testing.T) {
	c := newTestComposer(t, Config{})

	if err := c.FillRect(Rect{0, 0, 4, 4}, color.Black); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("draw before Begin: got %v", err)
	}
	if _, err := c.Finalize(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Finalize before Begin: got %v", err)
	}

	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if c.State() != Recording {
		t.Fatalf("state = %s", c.State())
	}
	if _, err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := c.Finalize(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("second Finalize: got %v", err)
	}
	if err := c.DrawText("x", 1, 10, 10); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("draw after Finalize: got %v", err)
	}

	if err := c.Begin(); err != nil {
		t.Fatalf("Begin after Finalize: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := c.Begin(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Begin after Close: got %v", err)
	}
	if err := c.FillRect(Rect{0, 0, 1, 1}, color.Black); !errors.Is(err, ErrClosed) {
		t.Fatalf("draw after Close: got %v", err)
	}
}

func TestPaintOrder(t *testing.T) {
	c := newTestComposer(t, Config{Width: 32, Height: 32})
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}

	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.FillRect(Rect{0, 0, 20, 20}, red); err != nil {
		t.Fatalf("FillRect: %v", err)
	}
	if err := c.FillRect(Rect{10, 10, 20, 20}, blue); err != nil {
		t.Fatalf("FillRect: %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := img.RGBAAt(5, 5); got != red {
		t.Errorf("red-only area = %v", got)
	}
	if got := img.RGBAAt(15, 15); got != blue {
		t.Errorf("overlap = %v, want blue", got)
	}
	if got := img.RGBAAt(25, 25); got != blue {
		t.Errorf("blue-only area = %v", got)
	}
	if got := img.RGBAAt(25, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background = %v", got)
	}
}

func checkerImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	colors := []color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255},
		{255, 255, 0, 255}, {0, 255, 255, 255}, {255, 0, 255, 255},
	}
	for i, col := range colors {
		img.SetRGBA(i%3, i/3, col)
	}
	return img
}

func TestPlaceImageNearestNeighbour(t *testing.T) {
	for _, ss := range []int{1, 2} {
		c := newTestComposer(t, Config{Width: 40, Height: 30, Supersample: ss})
		src := checkerImage()

		if err := c.Begin(); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		dst := Rect{X: 8, Y: 8, W: 12, H: 8}
		if err := c.PlaceImage(SlotMatrix, src, dst, 4, 0); err != nil {
			t.Fatalf("PlaceImage: %v", err)
		}
		img, err := c.Finalize()
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}

		for y := 8; y < 16; y++ {
			for x := 8; x < 20; x++ {
				want := src.RGBAAt((x-8)/4, (y-8)/4)
				if got := img.RGBAAt(x, y); got != want {
					t.Fatalf("ss=%d pixel (%d,%d) = %v, want %v", ss, x, y, got, want)
				}
			}
		}
		if got := img.RGBAAt(7, 7); got != (color.RGBA{255, 255, 255, 255}) {
			t.Fatalf("ss=%d outside dst = %v", ss, got)
		}
	}
}

func TestPlaceImageClampsToEdge(t *testing.T) {
	c := newTestComposer(t, Config{Width: 32, Height: 32})
	src := checkerImage()

	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// dst is larger than the scaled image, so its right and bottom parts
	// repeat the last column and row.
	if err := c.PlaceImage(SlotMatrix, src, Rect{0, 0, 10, 10}, 2, 0); err != nil {
		t.Fatalf("PlaceImage: %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got, want := img.RGBAAt(9, 9), src.RGBAAt(2, 1); got != want {
		t.Fatalf("corner = %v, want %v", got, want)
	}
	if got, want := img.RGBAAt(9, 0), src.RGBAAt(2, 0); got != want {
		t.Fatalf("right edge = %v, want %v", got, want)
	}
}

func TestPlaceImageRejectsBadInput(t *testing.T) {
	c := newTestComposer(t, Config{})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.PlaceImage(SlotMatrix, nil, Rect{0, 0, 4, 4}, 1, 0); !errors.Is(err, ErrGeometry) {
		t.Fatalf("nil image: got %v", err)
	}
	if err := c.PlaceImage(SlotMatrix, checkerImage(), Rect{0, 0, 0, 4}, 1, 0); !errors.Is(err, ErrGeometry) {
		t.Fatalf("empty rect: got %v", err)
	}
	if err := c.PlaceImage(SlotMatrix, checkerImage(), Rect{0, 0, 4, 4}, 0, 0); !errors.Is(err, ErrGeometry) {
		t.Fatalf("zero scale: got %v", err)
	}
	if _, ok := c.Slot(SlotMatrix); ok {
		t.Fatalf("rejected image was registered")
	}
}

func TestStrokeAndText(t *testing.T) {
	c := newTestComposer(t, Config{Width: 64, Height: 32})
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.StrokePath([]gg.Point{{X: 1, Y: 1}}, 1, color.Black); !errors.Is(err, ErrGeometry) {
		t.Fatalf("single point path: got %v", err)
	}
	if err := c.StrokePath([]gg.Point{{X: 0, Y: 2}, {X: 64, Y: 2}}, 2, color.Black); err != nil {
		t.Fatalf("StrokePath: %v", err)
	}
	if err := c.DrawText("Hello", 4, 24, 14); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	if err := c.DrawText("x", 4, 24, 0); !errors.Is(err, ErrGeometry) {
		t.Fatalf("zero font size: got %v", err)
	}
	img, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if got := img.RGBAAt(32, 2); got.R > 16 {
		t.Fatalf("stroke not painted: %v", got)
	}
	inked := 0
	for y := 8; y < 30; y++ {
		for x := 0; x < 64; x++ {
			if img.RGBAAt(x, y).R < 128 {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Fatalf("text left no ink")
	}
}

func TestCloseReleasesSlots(t *testing.T) {
	c, err := NewComposer(Config{Width: 32, Height: 32})
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.PlaceImage(SlotColorbar, checkerImage(), Rect{0, 0, 3, 2}, 1, 0); err != nil {
		t.Fatalf("PlaceImage: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := c.Slot(SlotColorbar); ok {
		t.Fatalf("slot survived Close")
	}
	if c.State() != Destroyed {
		t.Fatalf("state = %s", c.State())
	}
}

func pt(x, y float64) gg.Point { return gg.Point{X: x, Y: y} }
