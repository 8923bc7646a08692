// Package render composes matrices, colorbars and text onto a canvas using fogleman/gg.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/opentype"
)

var (
	// ErrNotRecording is returned by drawing calls outside a Begin/Finalize frame.
	ErrNotRecording = errors.New("render: canvas is not recording")
	// ErrClosed is returned by any call after Close.
	ErrClosed = errors.New("render: composer is closed")
	// ErrGeometry is returned for degenerate rectangles, paths or font sizes.
	ErrGeometry = errors.New("render: invalid geometry")
)

// Config contains composer configuration.
type Config struct {
	Width  int
	Height int
	// Supersample renders internally at Supersample times the external
	// resolution and downsamples on Finalize. Zero means 1.
	Supersample   int
	Background    color.Color
	Foreground    color.Color
	Font          *opentype.Font
	FaceCacheSize int
	// Margin is the top-left offset of the matrix and the top of the colorbar.
	Margin gg.Point
}

// State is the lifecycle position of a Composer.
type State uint8

const (
	Uninitialized State = iota
	Recording
	Finalized
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Recording:
		return "recording"
	case Finalized:
		return "finalized"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Slot names a logical image registration. Placing an image into an occupied
// slot replaces the previous image.
type Slot uint8

const (
	SlotMatrix Slot = iota
	SlotColorbar
)

// Rect is an axis-aligned rectangle in external y-down pixels.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) empty() bool {
	return !(r.W > 0 && r.H > 0)
}

// Composer paints layers onto a single canvas in submission order.
type Composer struct {
	config Config
	ss     float64
	canvas *image.RGBA
	dc     *gg.Context
	faces  *faceCache
	slots  map[Slot]*image.RGBA
	state  State
}

// MaxDeviceSize bounds each side of the internal canvas, that is the
// external size times Supersample.
const MaxDeviceSize = 16384

// NewComposer creates a composer with a canvas of cfg.Width x cfg.Height.
func NewComposer(cfg Config) (*Composer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrGeometry, cfg.Width, cfg.Height)
	}
	if cfg.Supersample <= 0 {
		cfg.Supersample = 1
	}
	if cfg.Supersample > MaxDeviceSize ||
		cfg.Width > MaxDeviceSize/cfg.Supersample || cfg.Height > MaxDeviceSize/cfg.Supersample {
		return nil, fmt.Errorf("%w: canvas %dx%d at %dx supersampling exceeds %dpx",
			ErrGeometry, cfg.Width, cfg.Height, cfg.Supersample, MaxDeviceSize)
	}
	if cfg.Background == nil {
		cfg.Background = color.White
	}
	if cfg.Foreground == nil {
		cfg.Foreground = color.Black
	}
	if cfg.Font == nil {
		f, err := DefaultFont()
		if err != nil {
			return nil, err
		}
		cfg.Font = f
	}

	faces, err := newFaceCache(cfg.Font, cfg.FaceCacheSize)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cfg.Width*cfg.Supersample, cfg.Height*cfg.Supersample))
	return &Composer{
		config: cfg,
		ss:     float64(cfg.Supersample),
		canvas: canvas,
		dc:     gg.NewContextForRGBA(canvas),
		faces:  faces,
		slots:  make(map[Slot]*image.RGBA),
	}, nil
}

// Width returns the external canvas width.
func (c *Composer) Width() int { return c.config.Width }

// Height returns the external canvas height.
func (c *Composer) Height() int { return c.config.Height }

// State returns the current lifecycle state.
func (c *Composer) State() State { return c.state }

// SetMargin moves the matrix and colorbar anchor.
func (c *Composer) SetMargin(x, y float64) {
	c.config.Margin = gg.Point{X: x, Y: y}
}

// Margin returns the matrix and colorbar anchor.
func (c *Composer) Margin() gg.Point { return c.config.Margin }

// Slot returns the image registered under s.
func (c *Composer) Slot(s Slot) (*image.RGBA, bool) {
	img, ok := c.slots[s]
	return img, ok
}

// Begin starts a new frame, clearing the canvas to the background color.
func (c *Composer) Begin() error {
	if c.state == Destroyed {
		return ErrClosed
	}
	c.dc.Identity()
	c.dc.ClearPath()
	c.dc.SetLineCap(gg.LineCapButt)
	c.dc.SetColor(c.config.Background)
	c.dc.Clear()
	c.state = Recording
	return nil
}

func (c *Composer) checkRecording() error {
	switch c.state {
	case Recording:
		return nil
	case Destroyed:
		return ErrClosed
	}
	return fmt.Errorf("%w (state %s)", ErrNotRecording, c.state)
}

// FillRect paints r with a solid color.
func (c *Composer) FillRect(r Rect, col color.Color) error {
	if err := c.checkRecording(); err != nil {
		return err
	}
	if r.empty() {
		return fmt.Errorf("%w: rect %+v", ErrGeometry, r)
	}
	c.dc.DrawRectangle(r.X*c.ss, r.Y*c.ss, r.W*c.ss, r.H*c.ss)
	c.dc.SetColor(col)
	c.dc.Fill()
	return nil
}

// StrokePath strokes the polyline through points.
func (c *Composer) StrokePath(points []gg.Point, width float64, col color.Color) error {
	if err := c.checkRecording(); err != nil {
		return err
	}
	if len(points) < 2 || width <= 0 {
		return fmt.Errorf("%w: path of %d points, width %v", ErrGeometry, len(points), width)
	}
	c.dc.ClearPath()
	c.dc.MoveTo(points[0].X*c.ss, points[0].Y*c.ss)
	for _, p := range points[1:] {
		c.dc.LineTo(p.X*c.ss, p.Y*c.ss)
	}
	c.dc.SetLineWidth(width * c.ss)
	c.dc.SetColor(col)
	c.dc.Stroke()
	return nil
}

// DrawText draws a single line of text with its baseline at y.
func (c *Composer) DrawText(s string, x, y, size float64) error {
	if err := c.checkRecording(); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: font size %v", ErrGeometry, size)
	}
	if s == "" {
		return nil
	}
	face, err := c.faces.get(size * c.ss)
	if err != nil {
		return err
	}
	c.dc.SetFontFace(face)
	c.dc.SetColor(c.config.Foreground)
	c.dc.DrawString(s, x*c.ss, y*c.ss)
	return nil
}

// PlaceImage registers img under slot and paints it into dst with its
// top-left pixel at dst's top-left corner.
func (c *Composer) PlaceImage(slot Slot, img *image.RGBA, dst Rect, scale, rotation float64) error {
	return c.PlaceImageAt(slot, img, dst, gg.Point{X: dst.X, Y: dst.Y}, scale, rotation)
}

// PlaceImageAt registers img under slot and paints dst with it. Source pixel
// (sx, sy) lands at origin + R(rotation)*scale*(sx, sy). Pixels of dst outside
// the image repeat its edge.
func (c *Composer) PlaceImageAt(slot Slot, img *image.RGBA, dst Rect, origin gg.Point, scale, rotation float64) error {
	if err := c.checkRecording(); err != nil {
		return err
	}
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("%w: empty image", ErrGeometry)
	}
	if dst.empty() || scale <= 0 {
		return fmt.Errorf("%w: rect %+v, scale %v", ErrGeometry, dst, scale)
	}

	c.slots[slot] = img

	c.dc.DrawRectangle(dst.X*c.ss, dst.Y*c.ss, dst.W*c.ss, dst.H*c.ss)
	c.dc.SetFillStyle(newImagePattern(img, origin, scale, rotation, c.ss))
	c.dc.Fill()
	return nil
}

// boxFilter averages each Supersample x Supersample block of device pixels.
// Kernel.Scale widens the support by the shrink factor, so a constant kernel
// of half-width 0.5 covers exactly one block.
var boxFilter = &draw.Kernel{
	Support: 0.5,
	At:      func(float64) float64 { return 1 },
}

// Finalize ends the frame and returns the canvas at external resolution.
// The returned image is not touched by later frames.
func (c *Composer) Finalize() (*image.RGBA, error) {
	if err := c.checkRecording(); err != nil {
		return nil, err
	}
	c.state = Finalized

	out := image.NewRGBA(image.Rect(0, 0, c.config.Width, c.config.Height))
	if c.config.Supersample == 1 {
		copy(out.Pix, c.canvas.Pix)
		return out, nil
	}
	boxFilter.Scale(out, out.Bounds(), c.canvas, c.canvas.Bounds(), draw.Src, nil)
	return out, nil
}

// Close releases every registered image, then the drawing context.
func (c *Composer) Close() error {
	if c.state == Destroyed {
		return nil
	}
	for s := range c.slots {
		delete(c.slots, s)
	}
	c.faces.purge()
	c.dc = nil
	c.canvas = nil
	c.state = Destroyed
	return nil
}
