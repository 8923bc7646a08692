// Package zarr provides a reader for 2-D Zarr v3 arrays.
package zarr

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/lighttransport/tinyplotlib/internal/raster"
)

var (
	// ErrNotFound is returned for arrays that do not exist in the store.
	ErrNotFound = errors.New("zarr: array not found")
	// ErrTooLarge is returned for arrays or chunks above MaxElements.
	ErrTooLarge = errors.New("zarr: array too large")
)

// MaxElements bounds the element count of an array and of a single chunk.
const MaxElements = 1 << 26

// Reader reads arrays from a Zarr v3 store directory.
type Reader struct {
	basePath string
	mu       sync.RWMutex
	decoder  *zstd.Decoder

	// Parsed zarr.json per array name.
	metas map[string]*ArrayMeta
}

// ArrayMeta represents Zarr v3 array metadata (zarr.json).
type ArrayMeta struct {
	Shape     []int  `json:"shape"`
	DataType  string `json:"data_type"`
	ChunkGrid struct {
		Name          string `json:"name"`
		Configuration struct {
			ChunkShape []int `json:"chunk_shape"`
		} `json:"configuration"`
	} `json:"chunk_grid"`
	ChunkKeyEncoding struct {
		Name          string `json:"name"`
		Configuration struct {
			Separator string `json:"separator"`
		} `json:"configuration"`
	} `json:"chunk_key_encoding"`
	FillValue interface{} `json:"fill_value"`
	Codecs    []struct {
		Name          string                 `json:"name"`
		Configuration map[string]interface{} `json:"configuration"`
	} `json:"codecs"`
	ZarrFormat int    `json:"zarr_format"`
	NodeType   string `json:"node_type"`
}

// ArrayInfo summarizes an array for listings.
type ArrayInfo struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	DataType string `json:"data_type"`
}

// NewReader creates a reader for the store at basePath.
func NewReader(basePath string) (*Reader, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zarr store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("zarr store %s is not a directory", basePath)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Reader{
		basePath: basePath,
		decoder:  decoder,
		metas:    make(map[string]*ArrayMeta),
	}, nil
}

// Path returns the store directory.
func (r *Reader) Path() string {
	return r.basePath
}

// Arrays lists the arrays directly under the store root, sorted by name.
func (r *Reader) Arrays() ([]ArrayInfo, error) {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list zarr store: %w", err)
	}

	var out []ArrayInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := r.Meta(e.Name())
		if err != nil {
			// Groups and foreign directories are skipped.
			continue
		}
		w, h := meta.dims()
		out = append(out, ArrayInfo{Name: e.Name(), Width: w, Height: h, DataType: meta.DataType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Meta returns the parsed metadata of the named array.
func (r *Reader) Meta(name string) (*ArrayMeta, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}

	r.mu.RLock()
	meta, ok := r.metas[name]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err := loadArrayMeta(filepath.Join(r.basePath, name))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.metas[name] = meta
	r.mu.Unlock()
	return meta, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// loadArrayMeta loads and validates Zarr v3 array metadata.
func loadArrayMeta(arrayPath string) (*ArrayMeta, error) {
	data, err := os.ReadFile(filepath.Join(arrayPath, "zarr.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(arrayPath))
		}
		return nil, err
	}

	var meta ArrayMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse zarr.json: %w", err)
	}
	if meta.NodeType != "" && meta.NodeType != "array" {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotFound, filepath.Base(arrayPath), meta.NodeType)
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *ArrayMeta) validate() error {
	if len(m.Shape) == 0 || len(m.Shape) > 2 {
		return fmt.Errorf("unsupported zarr shape %v: want 1 or 2 dimensions", m.Shape)
	}
	if len(m.Shape) != len(m.ChunkGrid.Configuration.ChunkShape) {
		return fmt.Errorf("invalid zarr metadata: shape dims (%d) != chunk dims (%d)", len(m.Shape), len(m.ChunkGrid.Configuration.ChunkShape))
	}
	for d, n := range m.ChunkGrid.Configuration.ChunkShape {
		if n <= 0 {
			return fmt.Errorf("invalid chunk shape at dim %d: %d", d, n)
		}
		if m.Shape[d] <= 0 {
			return fmt.Errorf("invalid shape at dim %d: %d", d, m.Shape[d])
		}
	}
	if w, h := m.dims(); w > MaxElements/h {
		return fmt.Errorf("%w: shape %v", ErrTooLarge, m.Shape)
	}
	if w, h := m.chunkDims(); w > MaxElements/h {
		return fmt.Errorf("%w: chunk shape %v", ErrTooLarge, m.ChunkGrid.Configuration.ChunkShape)
	}
	if _, err := dtypeSize(m.DataType); err != nil {
		return err
	}
	for _, c := range m.Codecs {
		switch c.Name {
		case "bytes", "zstd":
		default:
			return fmt.Errorf("unsupported zarr codec: %s", c.Name)
		}
	}
	return nil
}

// dims returns width and height. A 1-D array is a single row.
func (m *ArrayMeta) dims() (width, height int) {
	if len(m.Shape) == 1 {
		return m.Shape[0], 1
	}
	return m.Shape[1], m.Shape[0]
}

func (m *ArrayMeta) chunkDims() (width, height int) {
	cs := m.ChunkGrid.Configuration.ChunkShape
	if len(cs) == 1 {
		return cs[0], 1
	}
	return cs[1], cs[0]
}

func (m *ArrayMeta) byteOrder() binary.ByteOrder {
	for _, c := range m.Codecs {
		if c.Name == "bytes" && c.Configuration["endian"] == "big" {
			return binary.BigEndian
		}
	}
	return binary.LittleEndian
}

func (m *ArrayMeta) compressed() bool {
	for _, c := range m.Codecs {
		if c.Name == "zstd" {
			return true
		}
	}
	return false
}

func (m *ArrayMeta) chunkKey(row, col int) string {
	idx := []int{row, col}
	if len(m.Shape) == 1 {
		idx = idx[1:]
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}

	sep := m.ChunkKeyEncoding.Configuration.Separator
	if m.ChunkKeyEncoding.Name == "v2" {
		if sep == "" {
			sep = "."
		}
		return strings.Join(parts, sep)
	}
	if sep == "" {
		sep = "/"
	}
	return "c" + sep + strings.Join(parts, sep)
}

func dtypeSize(dataType string) (int, error) {
	switch dataType {
	case "float32", "int32", "uint32":
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported zarr data_type: %s", dataType)
	}
}

// fillValue returns the array's fill value as float32. Floats may use the
// JSON strings "NaN", "Infinity" and "-Infinity".
func (m *ArrayMeta) fillValue() (float32, error) {
	switch t := m.FillValue.(type) {
	case nil:
		return 0, nil
	case float64:
		return float32(t), nil
	case string:
		switch t {
		case "NaN":
			return float32(math.NaN()), nil
		case "Infinity":
			return float32(math.Inf(1)), nil
		case "-Infinity":
			return float32(math.Inf(-1)), nil
		}
	}
	return 0, fmt.Errorf("unsupported fill_value for %s: %v", m.DataType, m.FillValue)
}

func (m *ArrayMeta) decode(b []byte, order binary.ByteOrder) float32 {
	u := order.Uint32(b)
	switch m.DataType {
	case "int32":
		return float32(int32(u))
	case "uint32":
		return float32(u)
	}
	return math.Float32frombits(u)
}

// readChunk reads and, if needed, decompresses one chunk file.
func (r *Reader) readChunk(arrayPath string, meta *ArrayMeta, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(arrayPath, filepath.FromSlash(key)))
	if err != nil {
		return nil, err
	}
	if !meta.compressed() {
		return data, nil
	}
	decompressed, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %w", err)
	}
	return decompressed, nil
}

// ReadMatrix reads the whole named array as a matrix. Missing chunks take
// the fill value. Edge chunks may be stored padded to the full chunk shape
// or truncated to the array bounds.
func (r *Reader) ReadMatrix(name string) (raster.Matrix, error) {
	meta, err := r.Meta(name)
	if err != nil {
		return raster.Matrix{}, err
	}
	fill, err := meta.fillValue()
	if err != nil {
		return raster.Matrix{}, err
	}

	width, height := meta.dims()
	chunkW, chunkH := meta.chunkDims()
	order := meta.byteOrder()
	arrayPath := filepath.Join(r.basePath, name)

	data := make([]float32, width*height)
	for rowChunk := 0; rowChunk < ceilDiv(height, chunkH); rowChunk++ {
		rowStart := rowChunk * chunkH
		rowLen := min(chunkH, height-rowStart)

		for colChunk := 0; colChunk < ceilDiv(width, chunkW); colChunk++ {
			colStart := colChunk * chunkW
			colLen := min(chunkW, width-colStart)

			key := meta.chunkKey(rowChunk, colChunk)
			chunk, err := r.readChunk(arrayPath, meta, key)
			if os.IsNotExist(err) {
				for y := 0; y < rowLen; y++ {
					row := data[(rowStart+y)*width+colStart:]
					for x := 0; x < colLen; x++ {
						row[x] = fill
					}
				}
				continue
			}
			if err != nil {
				return raster.Matrix{}, fmt.Errorf("failed to load %s chunk %s: %w", name, key, err)
			}

			// Padded chunks keep the full chunk stride.
			stride := colLen
			switch len(chunk) {
			case chunkW * chunkH * 4:
				stride = chunkW
			case rowLen * colLen * 4:
			default:
				return raster.Matrix{}, fmt.Errorf("%s chunk %s has %d bytes, expected %d or %d",
					name, key, len(chunk), chunkW*chunkH*4, rowLen*colLen*4)
			}

			for y := 0; y < rowLen; y++ {
				row := data[(rowStart+y)*width+colStart:]
				for x := 0; x < colLen; x++ {
					off := (y*stride + x) * 4
					row[x] = meta.decode(chunk[off:off+4], order)
				}
			}
		}
	}

	return raster.NewMatrix(width, height, data)
}

// Close releases resources.
func (r *Reader) Close() {
	if r.decoder != nil {
		r.decoder.Close()
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
