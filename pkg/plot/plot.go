// Package plot renders matrices, colorbars and text into a single figure.
//
// A Plot owns one canvas. Draw calls paint in submission order; Render
// finalizes the frame, after which the figure can be read back, saved or
// shown. Every operation reports success as a bool and appends a line to
// the Plot's error log on failure.
package plot

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"golang.org/x/image/font/opentype"

	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/internal/render"
	"github.com/lighttransport/tinyplotlib/pkg/colormap"
)

// Default configuration values.
const (
	DefaultWidth       = 512
	DefaultHeight      = 512
	DefaultOffset      = 8
	DefaultScale       = render.DefaultMatrixScale
	DefaultJPEGQuality = 97
)

// Config contains plot configuration. Zero fields take defaults.
type Config struct {
	// Width and Height are the figure size in pixels. Negative values make
	// the Plot invalid.
	Width  int
	Height int
	// OffsetX and OffsetY position the matrix. Nil means DefaultOffset.
	OffsetX *float64
	OffsetY *float64
	// Scale is the size in pixels of one matrix element.
	Scale int
	// Supersample renders internally at a higher resolution.
	Supersample int
	// Antialias is the antialiasing sample count. It is recorded but does
	// not affect rendering.
	Antialias     int
	Colormap      string
	ColorbarTicks int
	JPEGQuality   int
	// Font replaces the embedded default font. FontPath is used when Font
	// is nil.
	Font     *opentype.Font
	FontPath string
	Encoder  Encoder
	Viewer   Viewer
	// TempDir holds the files written by Imshow. Empty means os.TempDir.
	TempDir string
}

func (c *Config) applyDefaults() {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Height == 0 {
		c.Height = DefaultHeight
	}
	if c.Scale <= 0 {
		c.Scale = DefaultScale
	}
	if c.Supersample <= 0 {
		c.Supersample = 1
	}
	if c.Antialias <= 0 {
		c.Antialias = 1
	}
	if c.ColorbarTicks <= 0 {
		c.ColorbarTicks = render.DefaultTicks
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.Encoder == nil {
		c.Encoder = StdEncoder{}
	}
	if c.Viewer == nil {
		c.Viewer = SystemViewer
	}
}

// Plot is a single figure. It is not safe for concurrent use.
type Plot struct {
	config    Config
	composer  *render.Composer
	cmap      colormap.Kind
	antialias int
	valid     bool
	closed    bool
	figure    *image.RGBA
	errLog    strings.Builder
	errs      []error
}

// New creates a Plot and begins its first frame. It never returns nil; if
// setup fails the Plot is permanently invalid and Errors explains why.
func New(cfg Config) *Plot {
	cfg.applyDefaults()
	p := &Plot{
		config:    cfg,
		cmap:      colormap.Parse(cfg.Colormap),
		antialias: cfg.Antialias,
	}

	if cfg.Width < 0 || cfg.Height < 0 {
		p.record("init", fmt.Errorf("%w: canvas size %dx%d", ErrInit, cfg.Width, cfg.Height))
		return p
	}

	font := cfg.Font
	if font == nil && cfg.FontPath != "" {
		f, err := render.LoadFont(cfg.FontPath)
		if err != nil {
			p.record("init", fmt.Errorf("%w: %w", ErrInit, err))
			return p
		}
		font = f
	}

	margin := func(v *float64) float64 {
		if v == nil {
			return DefaultOffset
		}
		return *v
	}
	composer, err := render.NewComposer(render.Config{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Supersample: cfg.Supersample,
		Font:        font,
	})
	if err != nil {
		p.record("init", fmt.Errorf("%w: failed to initialize canvas: %w", ErrInit, err))
		return p
	}
	composer.SetMargin(margin(cfg.OffsetX), margin(cfg.OffsetY))
	if err := composer.Begin(); err != nil {
		composer.Close()
		p.record("init", fmt.Errorf("%w: %w", ErrInit, err))
		return p
	}

	p.composer = composer
	p.valid = true
	return p
}

// Valid reports whether the Plot was set up successfully.
func (p *Plot) Valid() bool { return p.valid }

// Errors returns the accumulated error log.
func (p *Plot) Errors() string { return p.errLog.String() }

// Err returns every recorded failure joined, or nil.
func (p *Plot) Err() error { return errors.Join(p.errs...) }

func (p *Plot) record(op string, err error) bool {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", op, err))
	fmt.Fprintf(&p.errLog, "%s: %v\n", op, err)
	return false
}

// usable checks validity and lifetime before any operation.
func (p *Plot) usable() error {
	if !p.valid {
		return fmt.Errorf("%w: plot is not valid", ErrInit)
	}
	if p.closed {
		return fmt.Errorf("%w: plot is closed", ErrInvalidState)
	}
	return nil
}

// drawable also rejects drawing into a rendered frame.
func (p *Plot) drawable() error {
	if err := p.usable(); err != nil {
		return err
	}
	if p.figure != nil {
		return fmt.Errorf("%w: frame already rendered, call Clear first", ErrInvalidState)
	}
	return nil
}

// SetColormap selects the colormap by name. Unknown names select viridis.
func (p *Plot) SetColormap(name string) { p.cmap = colormap.Parse(name) }

// Colormap returns the name of the current colormap.
func (p *Plot) Colormap() string { return p.cmap.String() }

// SetAntialias records the antialiasing sample count. Rendering ignores it;
// use Config.Supersample for supersampling.
func (p *Plot) SetAntialias(samples int) {
	if samples > 0 {
		p.antialias = samples
	}
}

// Antialias returns the recorded antialiasing sample count.
func (p *Plot) Antialias() int { return p.antialias }

// SetOffset moves the matrix and the top of the colorbar.
func (p *Plot) SetOffset(x, y float64) {
	if p.composer != nil {
		p.composer.SetMargin(x, y)
	}
}

// Matshow draws a width x height row-major matrix with the current colormap.
// Values are clamped to [0, 1].
func (p *Plot) Matshow(data []float32, width, height int) bool {
	if err := p.drawable(); err != nil {
		return p.record("matshow", err)
	}
	m, err := raster.NewMatrix(width, height, data)
	if err != nil {
		return p.record("matshow", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	if _, err := p.composer.Matshow(m, p.cmap, p.config.Scale); err != nil {
		return p.record("matshow", err)
	}
	return true
}

// Colorbar draws the gradient bar, border, ticks and labels for the current
// colormap.
func (p *Plot) Colorbar() bool {
	if err := p.drawable(); err != nil {
		return p.record("colorbar", err)
	}
	if _, err := p.composer.Colorbar(p.cmap, p.config.ColorbarTicks); err != nil {
		return p.record("colorbar", err)
	}
	return true
}

// Text draws s with its baseline at (x, y).
func (p *Plot) Text(s string, x, y, fontSize float64) bool {
	if err := p.drawable(); err != nil {
		return p.record("text", err)
	}
	if err := p.composer.DrawText(s, x, y, fontSize); err != nil {
		return p.record("text", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	return true
}

// Render finalizes the current frame. It must be called before Readfig,
// Savefig and EncodeFig.
func (p *Plot) Render() bool {
	if err := p.drawable(); err != nil {
		return p.record("render", err)
	}
	img, err := p.composer.Finalize()
	if err != nil {
		return p.record("render", err)
	}
	p.figure = img
	return true
}

// Clear discards the rendered figure and starts a new frame.
func (p *Plot) Clear() bool {
	if err := p.usable(); err != nil {
		return p.record("clear", err)
	}
	if err := p.composer.Begin(); err != nil {
		return p.record("clear", err)
	}
	p.figure = nil
	return true
}

// Figure returns the rendered figure. The image is shared; do not modify it.
func (p *Plot) Figure() (*image.RGBA, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	if p.figure == nil {
		return nil, fmt.Errorf("%w: figure read before render", ErrInvalidState)
	}
	return p.figure, nil
}

// Readfig copies the rendered RGBA pixels into *img and the dimensions into
// *width and *height. len(*img) is width*height*4.
func (p *Plot) Readfig(width, height *int, img *[]byte) bool {
	if err := p.usable(); err != nil {
		return p.record("readfig", err)
	}
	if width == nil || height == nil || img == nil {
		return p.record("readfig", fmt.Errorf("%w: input argument is nil", ErrInvalidArgument))
	}
	fig, err := p.Figure()
	if err != nil {
		return p.record("readfig", err)
	}

	w, h := fig.Bounds().Dx(), fig.Bounds().Dy()
	buf := (*img)[:0]
	for y := 0; y < h; y++ {
		off := y * fig.Stride
		buf = append(buf, fig.Pix[off:off+4*w]...)
	}
	*width, *height, *img = w, h, buf
	return true
}

// EncodeFig writes the rendered figure to w in the format named by ext.
func (p *Plot) EncodeFig(w io.Writer, ext string) bool {
	if err := p.usable(); err != nil {
		return p.record("encodefig", err)
	}
	format, err := FormatFromExt(ext)
	if err != nil {
		return p.record("encodefig", err)
	}
	if err := p.encode(w, format); err != nil {
		return p.record("encodefig", err)
	}
	return true
}

func (p *Plot) encode(w io.Writer, format Format) error {
	fig, err := p.Figure()
	if err != nil {
		return err
	}
	cw := &countingWriter{w: w}
	if err := p.config.Encoder.Encode(cw, fig, format, p.config.JPEGQuality); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if cw.n == 0 {
		return fmt.Errorf("%w: encoder wrote no data", ErrEncoding)
	}
	return nil
}

// Savefig writes the rendered figure to filename. The extension selects the
// codec: png, jpg or jpeg in any case.
func (p *Plot) Savefig(filename string) bool {
	if err := p.usable(); err != nil {
		return p.record("savefig", err)
	}
	format, err := FormatFromPath(filename)
	if err != nil {
		return p.record("savefig", err)
	}
	if err := p.saveTo(filename, format); err != nil {
		return p.record("savefig", err)
	}
	return true
}

func (p *Plot) saveTo(filename string, format Format) error {
	if _, err := p.Figure(); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := p.encode(f, format); err != nil {
		f.Close()
		os.Remove(filename)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	return nil
}

// Imshow renders the frame if needed, writes it to a temporary PNG and opens
// it with the configured viewer. The viewer's exit status is not checked.
func (p *Plot) Imshow() bool {
	if err := p.usable(); err != nil {
		return p.record("imshow", err)
	}
	if p.figure == nil && !p.Render() {
		return false
	}

	tmp, err := os.CreateTemp(p.config.TempDir, "tinyplot-*.png")
	if err != nil {
		return p.record("imshow", fmt.Errorf("failed to create temporary file: %w", err))
	}
	path := tmp.Name()
	tmp.Close()

	if err := p.saveTo(path, PNG); err != nil {
		return p.record("imshow", err)
	}
	if _, err := p.config.Viewer(path); err != nil {
		return p.record("imshow", fmt.Errorf("failed to launch viewer: %w", err))
	}
	return true
}

// Close releases the canvas and every image registered on it.
func (p *Plot) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.figure = nil
	if p.composer == nil {
		return nil
	}
	return p.composer.Close()
}
