// Package mask applies grayscale alpha masks to images.
package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyMask is returned when Composite receives no mask bytes.
var ErrEmptyMask = errors.New("mask is empty")

// Composite replaces the alpha channel of src with the grayscale intensity of
// the encoded mask and crops the result to the tight bounding box of pixels
// that are not fully transparent. When the mask size differs from src it is
// resampled with a Lanczos filter first. When every pixel ends up fully
// transparent the full frame is returned uncropped.
func Composite(src image.Image, maskData []byte) (*image.NRGBA, error) {
	if len(maskData) == 0 {
		return nil, ErrEmptyMask
	}

	m, err := imaging.Decode(bytes.NewReader(maskData))
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}

	out := imaging.Clone(src)
	w, h := out.Rect.Dx(), out.Rect.Dy()

	gray := imaging.Grayscale(m)
	if gray.Rect.Dx() != w || gray.Rect.Dy() != h {
		gray = imaging.Resize(gray, w, h, imaging.Lanczos)
	}

	// Grayscale leaves R == G == B, so R carries the luma.
	for y := 0; y < h; y++ {
		dst := out.Pix[y*out.Stride : y*out.Stride+w*4]
		msk := gray.Pix[y*gray.Stride : y*gray.Stride+w*4]
		for x := 0; x < w; x++ {
			dst[x*4+3] = msk[x*4]
		}
	}

	box, ok := BoundingBox(out)
	if !ok {
		return out, nil
	}
	return imaging.Crop(out, box), nil
}

// BoundingBox returns the smallest rectangle containing every pixel of img
// whose alpha is non-zero. ok is false when no such pixel exists.
func BoundingBox(img *image.NRGBA) (box image.Rectangle, ok bool) {
	b := img.Rect
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
