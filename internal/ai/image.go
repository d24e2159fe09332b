package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// FlattenOnWhite composites a transparent cutout over an opaque white canvas
// and re-encodes it as PNG. Synthesis endpoints handle alpha inconsistently.
func FlattenOnWhite(img models.Image) (models.Image, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return models.Image{}, fmt.Errorf("decoding cutout: %w", err)
	}

	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	flat := imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
		return models.Image{}, fmt.Errorf("encoding flattened cutout: %w", err)
	}
	return models.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}
