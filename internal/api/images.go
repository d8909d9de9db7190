package api

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"

	"github.com/biomech-visualizer/backend/internal/raster"
)

// Query bounds for rendered images.
const (
	defaultBlankSize = 1000
	maxRenderSize    = 8192
)

// decodeImage reads a PNG, JPEG or WebP image into a drawable canvas.
func decodeImage(r io.Reader) (*raster.Canvas, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return raster.FromImage(img), format, nil
}

// sniffImage validates that data is a supported image without decoding pixels.
func sniffImage(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("unsupported image: %w", err)
	}
	return cfg, format, nil
}

func writePNG(c *raster.Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
