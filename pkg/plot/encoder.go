package plot

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

// Format is an output image codec.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// FormatFromExt maps a file extension, with or without the leading dot and
// in any case, to a Format.
func FormatFromExt(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return "", fmt.Errorf("%w: no extension in filename or unsupported file format, ext = %q", ErrInvalidArgument, ext)
}

// FormatFromPath returns the Format named by path's extension.
func FormatFromPath(path string) (Format, error) {
	return FormatFromExt(filepath.Ext(path))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encoder writes a finished figure in the given format.
type Encoder interface {
	Encode(w io.Writer, img *image.RGBA, format Format, quality int) error
}

// StdEncoder encodes with image/png and image/jpeg.
type StdEncoder struct {
	// CompressionLevel is passed to the PNG encoder.
	CompressionLevel png.CompressionLevel
}

// Encode writes PNG as RGBA and JPEG as RGB.
func (e StdEncoder) Encode(w io.Writer, img *image.RGBA, format Format, quality int) error {
	switch format {
	case PNG:
		enc := png.Encoder{CompressionLevel: e.CompressionLevel}
		return enc.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
	return fmt.Errorf("%w: format %q", ErrInvalidArgument, format)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
