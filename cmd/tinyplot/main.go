// Command tinyplot renders a matrix into a PNG or JPEG figure.
//
// The matrix comes from a JSON file ({"width", "height", "data"}) or from an
// array of a Zarr store:
//
//	tinyplot -in m.json -o m.png -cmap magma -colorbar
//	tinyplot -zarr ./data/matrices.zarr -array heat -o heat.jpg -show
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/lighttransport/tinyplotlib/internal/data/zarr"
	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/internal/service"
	"github.com/lighttransport/tinyplotlib/pkg/plot"
)

// options holds the parsed command line.
type options struct {
	in          string
	zarrPath    string
	array       string
	out         string
	cmap        string
	colorbar    bool
	vmin, vmax  *float32
	title       string
	width       int
	height      int
	scale       int
	supersample int
	fontPath    string
	show        bool
	exportZarr  string
	compress    bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("tinyplot: ")
	if err := run(os.Args[1:], os.Stderr, plot.SystemViewer); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("tinyplot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.in, "in", "", "JSON matrix file")
	fs.StringVar(&o.zarrPath, "zarr", "", "Zarr store to read the matrix from")
	fs.StringVar(&o.array, "array", "", "array name inside the Zarr store")
	fs.StringVar(&o.out, "o", "figure.png", "output file (.png, .jpg or .jpeg)")
	fs.StringVar(&o.cmap, "cmap", "viridis", "colormap name")
	fs.BoolVar(&o.colorbar, "colorbar", false, "draw a colorbar")
	fs.Func("vmin", "value mapped to the bottom of the colormap", floatFlag(&o.vmin))
	fs.Func("vmax", "value mapped to the top of the colormap", floatFlag(&o.vmax))
	fs.StringVar(&o.title, "title", "", "text drawn below the matrix")
	fs.IntVar(&o.width, "width", plot.DefaultWidth, "minimum figure width in pixels")
	fs.IntVar(&o.height, "height", plot.DefaultHeight, "minimum figure height in pixels")
	fs.IntVar(&o.scale, "scale", 0, "pixels per matrix element")
	fs.IntVar(&o.supersample, "supersample", 1, "internal supersampling factor")
	fs.StringVar(&o.fontPath, "font", "", "TrueType font for labels")
	fs.BoolVar(&o.show, "show", false, "open the figure in the system viewer")
	fs.StringVar(&o.exportZarr, "export-zarr", "", "also write the matrix to this Zarr store")
	fs.BoolVar(&o.compress, "compress", true, "zstd-compress exported chunks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (o.in == "") == (o.zarrPath == "") {
		return nil, errors.New("exactly one of -in or -zarr is required")
	}
	if o.zarrPath != "" && o.array == "" {
		return nil, errors.New("-zarr requires -array")
	}
	return o, nil
}

func floatFlag(dst **float32) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		v := float32(f)
		*dst = &v
		return nil
	}
}

// matrixFile is the JSON matrix format.
type matrixFile struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"data"`
}

func loadMatrix(o *options) (raster.Matrix, error) {
	if o.zarrPath != "" {
		r, err := zarr.NewReader(o.zarrPath)
		if err != nil {
			return raster.Matrix{}, err
		}
		defer r.Close()
		return r.ReadMatrix(o.array)
	}

	data, err := os.ReadFile(o.in)
	if err != nil {
		return raster.Matrix{}, fmt.Errorf("failed to read %s: %w", o.in, err)
	}
	var mf matrixFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return raster.Matrix{}, fmt.Errorf("failed to parse %s: %w", o.in, err)
	}
	return raster.NewMatrix(mf.Width, mf.Height, mf.Data)
}

func run(args []string, stderr io.Writer, viewer plot.Viewer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if _, err := plot.FormatFromPath(o.out); err != nil {
		return err
	}

	m, err := loadMatrix(o)
	if err != nil {
		return err
	}

	if o.exportZarr != "" {
		name := o.array
		if name == "" {
			name = "matrix"
		}
		if err := zarr.WriteMatrix(o.exportZarr, name, m, zarr.WriteOptions{Compress: o.compress}); err != nil {
			return err
		}
		log.Printf("exported %dx%d matrix to %s/%s", m.Width, m.Height, o.exportZarr, name)
	}

	// -width and -height are minimums; the figure grows to fit the matrix.
	lay, err := service.FitLayout(m.Width, m.Height, service.LayoutOptions{
		MinWidth:  o.width,
		MinHeight: o.height,
		MarginX:   plot.DefaultOffset,
		MarginY:   plot.DefaultOffset,
		Scale:     o.scale,
		Colorbar:  o.colorbar,
		Title:     o.title != "",
	})
	if err != nil {
		return err
	}

	p := plot.New(plot.Config{
		Width:       lay.Width,
		Height:      lay.Height,
		Scale:       lay.Scale,
		Supersample: o.supersample,
		Colormap:    o.cmap,
		FontPath:    o.fontPath,
		Viewer:      viewer,
	})
	defer p.Close()

	lo, hi := service.ValueRange(m, o.vmin, o.vmax)
	norm := raster.Normalize(m, lo, hi)

	ok := p.Matshow(norm.Data, norm.Width, norm.Height)
	if ok && o.colorbar {
		ok = p.Colorbar()
	}
	if ok && o.title != "" {
		ok = p.Text(o.title, lay.TitleX, lay.TitleY, service.TitleSize)
	}
	if ok {
		ok = p.Render()
	}
	if ok {
		ok = p.Savefig(o.out)
	}
	if ok && o.show {
		ok = p.Imshow()
	}
	if !ok {
		return fmt.Errorf("failed to plot:\n%s", p.Errors())
	}
	log.Printf("wrote %s (%dx%d matrix, %dx%d figure, range %g..%g)", o.out, m.Width, m.Height, lay.Width, lay.Height, lo, hi)
	return nil
}
