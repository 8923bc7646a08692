package render

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const defaultFaceCacheSize = 16

// DefaultFont parses the embedded Go Regular font.
func DefaultFont() (*opentype.Font, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default font: %w", err)
	}
	return f, nil
}

// LoadFont parses a TrueType or OpenType font file.
func LoadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return f, nil
}

// faceCache keeps one face per pixel size.
type faceCache struct {
	font  *opentype.Font
	faces *lru.Cache[float64, font.Face]
}

func newFaceCache(f *opentype.Font, size int) (*faceCache, error) {
	if size <= 0 {
		size = defaultFaceCacheSize
	}
	faces, err := lru.NewWithEvict[float64, font.Face](size, func(_ float64, face font.Face) {
		face.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face cache: %w", err)
	}
	return &faceCache{font: f, faces: faces}, nil
}

func (c *faceCache) get(size float64) (font.Face, error) {
	if face, ok := c.faces.Get(size); ok {
		return face, nil
	}
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %vpx face: %w", size, err)
	}
	c.faces.Add(size, face)
	return face, nil
}

func (c *faceCache) purge() {
	c.faces.Purge()
}
