// Package service provides business logic for the figure server.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/lighttransport/tinyplotlib/internal/cache"
	"github.com/lighttransport/tinyplotlib/internal/data/zarr"
	"github.com/lighttransport/tinyplotlib/internal/raster"
	"github.com/lighttransport/tinyplotlib/pkg/plot"
)

var (
	// ErrNotFound is returned for unknown arrays.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned for requests that cannot be rendered.
	ErrInvalidRequest = errors.New("invalid request")
)

// MaxCanvas bounds the figure size in either dimension.
const MaxCanvas = 4096

// FigureServiceConfig contains figure service configuration.
type FigureServiceConfig struct {
	DatasetID  string
	ZarrReader *zarr.Reader
	Cache      *cache.Manager
	// Plot is the base configuration of every figure. Width and Height are
	// minimums; figures grow to fit the matrix.
	Plot plot.Config
}

// FigureService renders stored and submitted matrices into encoded figures.
type FigureService struct {
	datasetID string
	zarr      *zarr.Reader
	cache     *cache.Manager
	base      plot.Config

	// marginX and marginY are the matrix offsets from the top-left corner;
	// figures keep the same room on the opposite sides.
	marginX float64
	marginY float64

	bufferPool sync.Pool
}

// FigureRequest selects how a matrix is drawn.
type FigureRequest struct {
	Colormap string
	Colorbar bool
	// VMin and VMax override the automatic value range.
	VMin, VMax *float32
	Title      string
	Format     plot.Format
}

func (r FigureRequest) cacheOptions() map[string]string {
	opts := map[string]string{
		"colormap": r.Colormap,
		"colorbar": strconv.FormatBool(r.Colorbar),
		"title":    r.Title,
		"format":   string(r.Format),
	}
	if r.VMin != nil {
		opts["vmin"] = strconv.FormatFloat(float64(*r.VMin), 'g', -1, 32)
	}
	if r.VMax != nil {
		opts["vmax"] = strconv.FormatFloat(float64(*r.VMax), 'g', -1, 32)
	}
	return opts
}

// NewFigureService creates a new figure service.
func NewFigureService(cfg FigureServiceConfig) *FigureService {
	datasetID := cfg.DatasetID
	if datasetID == "" {
		datasetID = "default"
	}
	offset := func(v *float64) float64 {
		if v == nil {
			return plot.DefaultOffset
		}
		return *v
	}

	return &FigureService{
		datasetID: datasetID,
		zarr:      cfg.ZarrReader,
		cache:     cfg.Cache,
		base:      cfg.Plot,
		marginX:   offset(cfg.Plot.OffsetX),
		marginY:   offset(cfg.Plot.OffsetY),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// DatasetID returns the dataset this service serves.
func (s *FigureService) DatasetID() string { return s.datasetID }

// Arrays lists the arrays of the dataset.
func (s *FigureService) Arrays() ([]zarr.ArrayInfo, error) {
	if s.zarr == nil {
		return nil, nil
	}
	return s.zarr.Arrays()
}

// Matrix loads a stored array, caching the decoded matrix.
func (s *FigureService) Matrix(array string) (raster.Matrix, error) {
	if s.zarr == nil {
		return raster.Matrix{}, fmt.Errorf("%w: dataset %s has no store", ErrNotFound, s.datasetID)
	}
	key := cache.MatrixKey(s.datasetID, array)
	if m, ok := s.cache.GetMatrix(key); ok {
		return m, nil
	}

	m, err := s.zarr.ReadMatrix(array)
	if errors.Is(err, zarr.ErrNotFound) {
		return raster.Matrix{}, fmt.Errorf("%w: array %s", ErrNotFound, array)
	}
	if errors.Is(err, zarr.ErrTooLarge) {
		return raster.Matrix{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err != nil {
		return raster.Matrix{}, fmt.Errorf("failed to load array %s: %w", array, err)
	}
	s.cache.SetMatrix(key, m)
	return m, nil
}

// GetArrayFigure renders a stored array.
func (s *FigureService) GetArrayFigure(array string, req FigureRequest) ([]byte, error) {
	// Check cache (prefix with dataset ID)
	cacheKey := s.datasetID + ":" + cache.FigureKey(array, req.cacheOptions())
	if data, ok := s.cache.GetFigure(cacheKey); ok {
		return data, nil
	}

	m, err := s.Matrix(array)
	if err != nil {
		return nil, err
	}
	return s.renderAndCache(cacheKey, m, req)
}

// RenderMatrix renders a submitted matrix.
func (s *FigureService) RenderMatrix(m raster.Matrix, req FigureRequest) ([]byte, error) {
	if _, err := raster.NewMatrix(m.Width, m.Height, m.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	cacheKey := cache.FigureKey("matrix:"+cache.MatrixDigest(m), req.cacheOptions())
	if data, ok := s.cache.GetFigure(cacheKey); ok {
		return data, nil
	}
	return s.renderAndCache(cacheKey, m, req)
}

func (s *FigureService) renderAndCache(cacheKey string, m raster.Matrix, req FigureRequest) ([]byte, error) {
	data, err := s.render(m, req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetFigure(cacheKey, data); err != nil {
		log.Printf("[FigureService] failed to cache %s: %v", cacheKey, err)
	}
	return data, nil
}

// ValueRange returns the range mapped onto the colormap: the finite
// minimum and maximum of m, overridden by vmin and vmax when set.
func ValueRange(m raster.Matrix, vmin, vmax *float32) (lo, hi float32) {
	lo, hi, ok := raster.Range(m)
	if !ok {
		lo, hi = 0, 1
	}
	if vmin != nil {
		lo = *vmin
	}
	if vmax != nil {
		hi = *vmax
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

func (s *FigureService) layout(w, h int, colorbar, title bool) (Layout, error) {
	return FitLayout(w, h, LayoutOptions{
		MinWidth:  s.base.Width,
		MinHeight: s.base.Height,
		MarginX:   s.marginX,
		MarginY:   s.marginY,
		Scale:     s.base.Scale,
		Colorbar:  colorbar,
		Title:     title,
	})
}

func (s *FigureService) render(m raster.Matrix, req FigureRequest) ([]byte, error) {
	if req.Format == "" {
		req.Format = plot.PNG
	}
	lay, err := s.layout(m.Width, m.Height, req.Colorbar, req.Title != "")
	if err != nil {
		return nil, err
	}

	cfg := s.base
	cfg.Width, cfg.Height, cfg.Scale = lay.Width, lay.Height, lay.Scale
	if req.Colormap != "" {
		cfg.Colormap = req.Colormap
	}

	p := plot.New(cfg)
	defer p.Close()
	if !p.Valid() {
		return nil, fmt.Errorf("failed to create plot: %w", p.Err())
	}

	lo, hi := ValueRange(m, req.VMin, req.VMax)
	norm := raster.Normalize(m, lo, hi)

	ok := p.Matshow(norm.Data, norm.Width, norm.Height)
	if ok && req.Colorbar {
		ok = p.Colorbar()
	}
	if ok && req.Title != "" {
		ok = p.Text(req.Title, lay.TitleX, lay.TitleY, TitleSize)
	}
	if ok {
		ok = p.Render()
	}

	buf := s.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		s.bufferPool.Put(buf)
	}()
	if ok {
		ok = p.EncodeFig(buf, string(req.Format))
	}
	if !ok {
		return nil, fmt.Errorf("failed to render figure: %w", p.Err())
	}

	// Copy the buffer data since we're returning it to the pool
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
