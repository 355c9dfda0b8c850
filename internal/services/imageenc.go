package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hyperjump/medscribe/internal/apperr"
)

const jpegQuality = 95

// NormalizeImage decodes any supported image, flattens transparency onto white,
// shrinks it so neither side exceeds maxDim (when maxDim > 0) and re-encodes it
// as an opaque JPEG.
func NormalizeImage(data []byte, maxDim int) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.New(apperr.KindEncoding, "image encoding failed", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, apperr.New(apperr.KindEncoding, fmt.Sprintf("empty %s image", format), nil)
	}

	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, apperr.New(apperr.KindEncoding, "image encoding failed", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales w×h down to fit a maxDim square, keeping the aspect ratio.
func fitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
