package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func writeMatrixJSON(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "m.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	return p
}

func noViewer(string) (int, error) { return 0, nil }

func TestRunJSONToPNGAndZarr(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	in := writeMatrixJSON(t, dir, `{"width": 3, "height": 2, "data": [0, 1, 2, 3, 4, 5]}`)
	out := filepath.Join(dir, "m.png")
	store := filepath.Join(dir, "store.zarr")

	var viewed string
	viewer := func(path string) (int, error) {
		viewed = path
		return 0, nil
	}
	var stderr bytes.Buffer
	err := run([]string{
		"-in", in, "-o", out, "-cmap", "jet", "-colorbar", "-title", "m",
		"-export-zarr", store, "-array", "m", "-show",
	}, &stderr, viewer)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if viewed == "" {
		t.Fatalf("viewer was not called")
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 512 || cfg.Height != 512 {
		t.Fatalf("output is %dx%d", cfg.Width, cfg.Height)
	}

	// The exported store renders the same matrix.
	again := filepath.Join(dir, "again.jpg")
	if err := run([]string{"-zarr", store, "-array", "m", "-o", again}, &stderr, noViewer); err != nil {
		t.Fatalf("run from zarr: %v", err)
	}
	if _, err := os.Stat(again); err != nil {
		t.Fatalf("stat jpeg output: %v", err)
	}
}

func TestRunGrowsCanvasForLargeMatrix(t *testing.T) {
	dir := t.TempDir()
	var body strings.Builder
	body.WriteString(`{"width": 200, "height": 200, "data": [`)
	for i := 0; i < 200*200; i++ {
		if i > 0 {
			body.WriteByte(',')
		}
		body.WriteString(strconv.Itoa(i % 7))
	}
	body.WriteString(`]}`)
	in := writeMatrixJSON(t, dir, body.String())
	out := filepath.Join(dir, "big.png")

	if err := run([]string{"-in", in, "-o", out, "-title", "big"}, &bytes.Buffer{}, noViewer); err != nil {
		t.Fatalf("run: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// 200 elements at 4px plus margins, and room for the title.
	if cfg.Width != 816 || cfg.Height != 840 {
		t.Fatalf("output is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	good := writeMatrixJSON(t, dir, `{"width": 1, "height": 1, "data": [1]}`)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"-o", "x.png"}, "exactly one of"},
		{"zarr without array", []string{"-zarr", dir}, "requires -array"},
		{"bad extension", []string{"-in", good, "-o", filepath.Join(dir, "x.bmp")}, "unsupported file format"},
		{"bad vmin", []string{"-in", good, "-vmin", "low"}, "invalid value"},
		{"missing file", []string{"-in", filepath.Join(dir, "none.json")}, "failed to read"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stderr bytes.Buffer
			err := run(tc.args, &stderr, noViewer)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) && !strings.Contains(stderr.String(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}

	bad := writeMatrixJSON(t, dir, `{"width": 2, "height": 2, "data": [1]}`)
	if err := run([]string{"-in", bad, "-o", filepath.Join(dir, "x.png")}, &bytes.Buffer{}, noViewer); err == nil {
		t.Fatalf("expected shape error")
	}
}
