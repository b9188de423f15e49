// internal/extract/image.go
package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// 上传照片支持的格式
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"
)

const (
	// Images narrower than this are upscaled before recognition.
	minOCRWidth   = 1000
	maxUpscale    = 3
	maxImagePixel = 40_000_000
)

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}
	if cfg.Width*cfg.Height > maxImagePixel {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// PrepareImage converts img to grayscale, upscales small images and
// returns PNG bytes ready for the recognizer.
func PrepareImage(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	scale := 1
	for b.Dx()*scale < minOCRWidth && scale < maxUpscale {
		scale++
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	if scale == 1 {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
