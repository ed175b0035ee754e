package news

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Decoders for uploaded main images.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	previewMaxW    = 200
	previewMaxH    = 200
	previewQuality = 75

	// Header dimensions are checked before decoding so a tiny upload cannot
	// declare a huge canvas.
	previewMaxPixels = 50_000_000
)

// MakePreview decodes src and returns a JPEG that fits within 200x200, keeping the
// aspect ratio. Images already inside the box are re-encoded at their own size.
func MakePreview(src []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > previewMaxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds %d pixels", ErrInvalid, cfg.Width, cfg.Height, previewMaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), previewMaxW, previewMaxH)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode image: empty %s", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; flatten transparent pixels onto white.
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales (w, h) down to fit in (maxW, maxH). It never scales up.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH >= h*maxW {
		nh := h * maxW / w
		return maxW, max(nh, 1)
	}
	nw := w * maxH / h
	return max(nw, 1), maxH
}
