// Package cache provides caching for encoded figures and decoded matrices.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lighttransport/tinyplotlib/internal/raster"
)

// Config contains cache configuration.
type Config struct {
	FigureCacheSizeMB int
	FigureTTL         time.Duration
	MatrixEntries     int
}

// Manager manages figure and matrix caches.
type Manager struct {
	figureCache *bigcache.BigCache
	matrixCache *lru.Cache[string, raster.Matrix]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FigureTTL <= 0 {
		cfg.FigureTTL = 30 * time.Minute
	}
	if cfg.FigureCacheSizeMB <= 0 {
		cfg.FigureCacheSizeMB = 64
	}
	if cfg.MatrixEntries <= 0 {
		cfg.MatrixEntries = 64
	}

	// Configure figure cache
	figureCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.FigureTTL,
		CleanWindow:        cfg.FigureTTL / 2,
		MaxEntriesInWindow: 256,
		MaxEntrySize:       64 * 1024, // 64KB per figure
		HardMaxCacheSize:   cfg.FigureCacheSizeMB,
		Verbose:            false,
	}

	figureCache, err := bigcache.New(context.Background(), figureCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create figure cache: %w", err)
	}

	matrixCache, err := lru.New[string, raster.Matrix](cfg.MatrixEntries)
	if err != nil {
		figureCache.Close()
		return nil, fmt.Errorf("failed to create matrix cache: %w", err)
	}

	return &Manager{
		figureCache: figureCache,
		matrixCache: matrixCache,
	}, nil
}

// GetFigure retrieves an encoded figure from cache.
func (m *Manager) GetFigure(key string) ([]byte, bool) {
	data, err := m.figureCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetFigure stores an encoded figure in cache.
func (m *Manager) SetFigure(key string, data []byte) error {
	return m.figureCache.Set(key, data)
}

// GetMatrix retrieves a decoded matrix. The matrix is shared; do not modify it.
func (m *Manager) GetMatrix(key string) (raster.Matrix, bool) {
	return m.matrixCache.Get(key)
}

// SetMatrix stores a decoded matrix.
func (m *Manager) SetMatrix(key string, mat raster.Matrix) {
	m.matrixCache.Add(key, mat)
}

// MatrixKey generates a cache key for a stored array.
func MatrixKey(dataset, array string) string {
	return fmt.Sprintf("mat:%s/%s", dataset, array)
}

// FigureKey generates a cache key for a figure rendered from source with
// the given options. Option order does not matter.
func FigureKey(source string, opts map[string]string) string {
	base := "fig:" + source
	if len(opts) == 0 {
		return base
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Hash options for cache key
	h := sha256.New()
	h.Write([]byte(base))
	for _, k := range keys {
		h.Write([]byte(fmt.Sprintf("%s=%s;", k, opts[k])))
	}
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// MatrixDigest identifies a matrix by its dimensions and contents.
func MatrixDigest(mat raster.Matrix) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(mat.Width))
	binary.LittleEndian.PutUint32(buf[4:], uint32(mat.Height))
	h.Write(buf[:])
	for _, v := range mat.Data {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		h.Write(buf[:4])
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	stats := m.figureCache.Stats()
	return map[string]interface{}{
		"figure_cache_len":    m.figureCache.Len(),
		"figure_cache_cap":    m.figureCache.Capacity(),
		"figure_cache_hits":   stats.Hits,
		"figure_cache_misses": stats.Misses,
		"matrix_cache_len":    m.matrixCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	m.matrixCache.Purge()
	return m.figureCache.Close()
}
