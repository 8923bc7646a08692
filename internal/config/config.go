// Package config handles configuration loading for the tinyplot figure server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// DatasetConfig points at one Zarr store.
type DatasetConfig struct {
	ZarrPath string `yaml:"zarr_path"`
}

// DataConfig contains the configured datasets in file order. The first
// dataset is the default. The legacy form with a single zarr_path key
// defines a dataset named "default".
type DataConfig struct {
	Datasets       map[string]DatasetConfig
	DefaultDataset string
	order          []string
}

// DatasetIDs returns dataset names in file order.
func (d *DataConfig) DatasetIDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// UnmarshalYAML decodes either the legacy or the multi-dataset form,
// keeping the order of the mapping keys.
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("data: expected mapping, got %v", node.Tag)
	}

	var legacy DatasetConfig
	legacySeen := false
	datasets := make(map[string]DatasetConfig)
	var order []string

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case key.Value == "zarr_path" && val.Kind == yaml.ScalarNode:
			legacy.ZarrPath = val.Value
			legacySeen = true
		case val.Kind == yaml.MappingNode:
			var ds DatasetConfig
			if err := val.Decode(&ds); err != nil {
				return fmt.Errorf("data.%s: %w", key.Value, err)
			}
			if _, dup := datasets[key.Value]; dup {
				return fmt.Errorf("data: duplicate dataset %q", key.Value)
			}
			datasets[key.Value] = ds
			order = append(order, key.Value)
		default:
			return fmt.Errorf("data.%s: unexpected value", key.Value)
		}
	}

	if legacySeen && len(order) == 0 {
		datasets[defaultDatasetID] = legacy
		order = append(order, defaultDatasetID)
	}

	d.Datasets = datasets
	d.order = order
	if len(order) > 0 {
		d.DefaultDataset = order[0]
	}
	return nil
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	FigureSizeMB     int `yaml:"figure_size_mb"`
	FigureTTLMinutes int `yaml:"figure_ttl_minutes"`
	MatrixEntries    int `yaml:"matrix_entries"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Margin          float64 `yaml:"margin"`
	Scale           int     `yaml:"scale"`
	Supersample     int     `yaml:"supersample"`
	Antialias       int     `yaml:"antialias"`
	DefaultColormap string  `yaml:"default_colormap"`
	ColorbarTicks   int     `yaml:"colorbar_ticks"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	FontPath        string  `yaml:"font_path"`
}

const defaultDatasetID = "default"

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "tinyplot",
		},
		Data: DataConfig{
			Datasets:       map[string]DatasetConfig{defaultDatasetID: {ZarrPath: "./data/matrices.zarr"}},
			DefaultDataset: defaultDatasetID,
			order:          []string{defaultDatasetID},
		},
		Cache: CacheConfig{
			FigureSizeMB:     256,
			FigureTTLMinutes: 10,
			MatrixEntries:    64,
		},
		Render: RenderConfig{
			Width:           512,
			Height:          512,
			Margin:          8,
			Scale:           4,
			Supersample:     1,
			Antialias:       1,
			DefaultColormap: "viridis",
			ColorbarTicks:   10,
			JPEGQuality:     97,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if len(cfg.Data.Datasets) == 0 {
		cfg.Data = defaults.Data
	}
	if cfg.Cache.FigureSizeMB == 0 {
		cfg.Cache.FigureSizeMB = defaults.Cache.FigureSizeMB
	}
	if cfg.Cache.FigureTTLMinutes == 0 {
		cfg.Cache.FigureTTLMinutes = defaults.Cache.FigureTTLMinutes
	}
	if cfg.Cache.MatrixEntries == 0 {
		cfg.Cache.MatrixEntries = defaults.Cache.MatrixEntries
	}

	r, dr := &cfg.Render, defaults.Render
	if r.Width == 0 {
		r.Width = dr.Width
	}
	if r.Height == 0 {
		r.Height = dr.Height
	}
	if r.Margin == 0 {
		r.Margin = dr.Margin
	}
	if r.Scale == 0 {
		r.Scale = dr.Scale
	}
	if r.Supersample == 0 {
		r.Supersample = dr.Supersample
	}
	if r.Antialias == 0 {
		r.Antialias = dr.Antialias
	}
	if r.DefaultColormap == "" {
		r.DefaultColormap = dr.DefaultColormap
	}
	if r.ColorbarTicks == 0 {
		r.ColorbarTicks = dr.ColorbarTicks
	}
	if r.JPEGQuality == 0 {
		r.JPEGQuality = dr.JPEGQuality
	}
}
