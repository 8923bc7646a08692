package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/lighttransport/tinyplotlib/internal/raster"
)

// WriteOptions controls how WriteMatrix lays out an array.
type WriteOptions struct {
	// ChunkWidth and ChunkHeight default to the matrix size.
	ChunkWidth  int
	ChunkHeight int
	// Compress enables the zstd codec.
	Compress bool
	// BigEndian selects big-endian element encoding.
	BigEndian bool
	// FillValue is recorded in zarr.json. Chunks made entirely of it are
	// not written.
	FillValue float32
}

// WriteMatrix stores m as a float32 Zarr v3 array named name under dir.
// Edge chunks are padded to the full chunk shape with the fill value.
func WriteMatrix(dir, name string, m raster.Matrix, opts WriteOptions) error {
	if !validName(name) {
		return fmt.Errorf("invalid array name %q", name)
	}
	if _, err := raster.NewMatrix(m.Width, m.Height, m.Data); err != nil {
		return err
	}
	chunkW, chunkH := opts.ChunkWidth, opts.ChunkHeight
	if chunkW <= 0 {
		chunkW = m.Width
	}
	if chunkH <= 0 {
		chunkH = m.Height
	}

	arrayPath := filepath.Join(dir, name)
	if err := os.MkdirAll(arrayPath, 0o755); err != nil {
		return fmt.Errorf("failed to create array directory: %w", err)
	}

	endian := "little"
	var order binary.ByteOrder = binary.LittleEndian
	if opts.BigEndian {
		endian = "big"
		order = binary.BigEndian
	}
	codecs := []map[string]interface{}{
		{"name": "bytes", "configuration": map[string]interface{}{"endian": endian}},
	}
	var enc *zstd.Encoder
	if opts.Compress {
		codecs = append(codecs, map[string]interface{}{
			"name":          "zstd",
			"configuration": map[string]interface{}{"level": 3, "checksum": false},
		})
		var err error
		enc, err = zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
	}

	var fill interface{} = float64(opts.FillValue)
	if math.IsNaN(float64(opts.FillValue)) {
		fill = "NaN"
	}
	meta := map[string]interface{}{
		"zarr_format": 3,
		"node_type":   "array",
		"shape":       []int{m.Height, m.Width},
		"data_type":   "float32",
		"chunk_grid": map[string]interface{}{
			"name":          "regular",
			"configuration": map[string]interface{}{"chunk_shape": []int{chunkH, chunkW}},
		},
		"chunk_key_encoding": map[string]interface{}{
			"name":          "default",
			"configuration": map[string]interface{}{"separator": "/"},
		},
		"fill_value": fill,
		"codecs":     codecs,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode zarr.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(arrayPath, "zarr.json"), metaJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write zarr.json: %w", err)
	}

	fillBits := math.Float32bits(opts.FillValue)
	for rowChunk := 0; rowChunk < ceilDiv(m.Height, chunkH); rowChunk++ {
		for colChunk := 0; colChunk < ceilDiv(m.Width, chunkW); colChunk++ {
			buf := make([]byte, chunkW*chunkH*4)
			allFill := true
			for y := 0; y < chunkH; y++ {
				for x := 0; x < chunkW; x++ {
					gx, gy := colChunk*chunkW+x, rowChunk*chunkH+y
					bits := fillBits
					if gx < m.Width && gy < m.Height {
						bits = math.Float32bits(m.At(gx, gy))
						allFill = allFill && bits == fillBits
					}
					order.PutUint32(buf[(y*chunkW+x)*4:], bits)
				}
			}
			if allFill {
				continue
			}
			if enc != nil {
				buf = enc.EncodeAll(buf, nil)
			}

			chunkPath := filepath.Join(arrayPath, "c", fmt.Sprint(rowChunk), fmt.Sprint(colChunk))
			if err := os.MkdirAll(filepath.Dir(chunkPath), 0o755); err != nil {
				return fmt.Errorf("failed to create chunk directory: %w", err)
			}
			if err := os.WriteFile(chunkPath, buf, 0o644); err != nil {
				return fmt.Errorf("failed to write chunk %d/%d: %w", rowChunk, colChunk, err)
			}
		}
	}
	return nil
}
