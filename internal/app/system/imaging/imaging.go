// Package imaging produces width-bounded copies of uploaded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidWidth is returned for non-positive target widths.
	ErrInvalidWidth = errors.New("imaging: width must be positive")
	// ErrTooLarge is returned for images with more pixels than the Resizer allows.
	ErrTooLarge = errors.New("imaging: image too large")
)

const (
	// DefaultJPEGQuality is used when a Resizer has no quality set.
	DefaultJPEGQuality = 85
	// DefaultMaxPixels is used when a Resizer has no pixel limit set.
	DefaultMaxPixels = 50_000_000
)

// Resizer scales images to a target width, keeping the aspect ratio.
// JPEG input stays JPEG; every other format is written as PNG.
type Resizer struct {
	JPEGQuality int
	Scaler      draw.Scaler
	// MaxPixels bounds width*height of accepted input, checked from the
	// header before the image is decoded.
	MaxPixels int
}

// New returns a Resizer using Catmull-Rom interpolation.
func New() *Resizer {
	return &Resizer{JPEGQuality: DefaultJPEGQuality, Scaler: draw.CatmullRom, MaxPixels: DefaultMaxPixels}
}

// Resize decodes data, scales it to width pixels wide and re-encodes it.
func (r *Resizer) Resize(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	limit := r.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}
	height := int(float64(b.Dy())*float64(width)/float64(b.Dx()) + 0.5)
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler := r.Scaler
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	scaler.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		q := r.JPEGQuality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: q})
	default:
		err = png.Encode(&out, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s thumbnail: %w", format, err)
	}
	return out.Bytes(), nil
}
