package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_LegacyFormat(t *testing.T) {
	content := `
server:
  port: 9000
data:
  zarr_path: "/data/legacy/matrices.zarr"
cache:
  figure_size_mb: 32
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Data.DefaultDataset != "default" {
		t.Errorf("expected default dataset 'default', got %q", cfg.Data.DefaultDataset)
	}
	ds, ok := cfg.Data.Datasets["default"]
	if !ok {
		t.Fatal("expected 'default' dataset")
	}
	if ds.ZarrPath != "/data/legacy/matrices.zarr" {
		t.Errorf("unexpected zarr_path: %s", ds.ZarrPath)
	}
	if cfg.Cache.FigureSizeMB != 32 {
		t.Errorf("expected figure cache 32MB, got %d", cfg.Cache.FigureSizeMB)
	}
}

func TestLoad_MultiDatasetFormat(t *testing.T) {
	content := `
server:
  port: 8080
data:
  heat:
    zarr_path: "/data/heat.zarr"
  flow:
    zarr_path: "/data/flow.zarr"
`
	cfg := loadFromString(t, content)

	if len(cfg.Data.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(cfg.Data.Datasets))
	}

	// First dataset in YAML order should be default
	if cfg.Data.DefaultDataset != "heat" {
		t.Errorf("expected default dataset 'heat', got %q", cfg.Data.DefaultDataset)
	}
	if got := cfg.Data.Datasets["flow"].ZarrPath; got != "/data/flow.zarr" {
		t.Errorf("unexpected flow zarr_path: %s", got)
	}

	// Check order preserved
	ids := cfg.Data.DatasetIDs()
	if len(ids) != 2 || ids[0] != "heat" || ids[1] != "flow" {
		t.Errorf("unexpected dataset order: %v", ids)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
data:
  test:
    zarr_path: "/test/m.zarr"
render:
  width: 640
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.FigureSizeMB != 256 {
		t.Errorf("expected default cache size 256, got %d", cfg.Cache.FigureSizeMB)
	}
	if cfg.Render.Width != 640 || cfg.Render.Height != 512 {
		t.Errorf("unexpected canvas %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.JPEGQuality != 97 || cfg.Render.ColorbarTicks != 10 || cfg.Render.Scale != 4 {
		t.Errorf("render defaults not applied: %+v", cfg.Render)
	}
	if cfg.Render.DefaultColormap != "viridis" {
		t.Errorf("expected viridis, got %q", cfg.Render.DefaultColormap)
	}
}

func TestLoad_NoDataSection(t *testing.T) {
	content := `
server:
  port: 8080
`
	cfg := loadFromString(t, content)

	if cfg.Data.DefaultDataset != "default" {
		t.Errorf("expected default dataset, got %q", cfg.Data.DefaultDataset)
	}
	if len(cfg.Data.Datasets) != 1 {
		t.Errorf("expected 1 default dataset, got %d", len(cfg.Data.Datasets))
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Render.Width != 512 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_InvalidData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data:\n  - a\n"), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for sequence data section")
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
