package mock

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/kiranshivaraju/studioshots/internal/ai"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// Vision satisfies models.VisionProvider for tests and local runs.
type Vision struct {
	Name_        string
	IdentifyFunc func(ctx context.Context, frames []models.Image) (string, error)
	BestFunc     func(ctx context.Context, frames []models.Image, product string) (string, error)
	SegmentFunc  func(ctx context.Context, frame models.Image, product string) (string, error)
}

func (m *Vision) Name() string { return m.Name_ }

func (m *Vision) IdentifyProducts(ctx context.Context, frames []models.Image) (string, error) {
	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, frames)
	}
	return "[]", nil
}

func (m *Vision) SelectBestFrame(ctx context.Context, frames []models.Image, product string) (string, error) {
	if m.BestFunc != nil {
		return m.BestFunc(ctx, frames, product)
	}
	return `{"best_frame_index": 0}`, nil
}

func (m *Vision) Segment(ctx context.Context, frame models.Image, product string) (string, error) {
	if m.SegmentFunc != nil {
		return m.SegmentFunc(ctx, frame, product)
	}
	return "", nil
}

// NewVision returns a Vision that finds one product, picks the first frame
// and segments the centre quarter of every frame.
func NewVision() *Vision {
	return &Vision{
		Name_: "mock",
		IdentifyFunc: func(_ context.Context, _ []models.Image) (string, error) {
			return `[{"name": "Ceramic Mug", "description": "A white ceramic mug with a matte finish"}]`, nil
		},
		BestFunc: func(_ context.Context, _ []models.Image, _ string) (string, error) {
			return `{"best_frame_index": 0, "reason": "mock"}`, nil
		},
		SegmentFunc: func(_ context.Context, frame models.Image, product string) (string, error) {
			mask, err := CenterMask(frame)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf(`[{"box_2d": [250, 250, 750, 750], "mask": "data:image/png;base64,%s", "label": %q}]`,
				base64.StdEncoding.EncodeToString(mask), product), nil
		},
	}
}

// NewFailingVision returns a Vision whose every call returns err.
func NewFailingVision(err error) *Vision {
	return &Vision{
		Name_: "mock-failing",
		IdentifyFunc: func(_ context.Context, _ []models.Image) (string, error) {
			return "", err
		},
		BestFunc: func(_ context.Context, _ []models.Image, _ string) (string, error) {
			return "", err
		},
		SegmentFunc: func(_ context.Context, _ models.Image, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutVision returns a Vision that blocks until the context is cancelled.
func NewTimeoutVision() *Vision {
	block := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ai.ErrInferenceTimeout
	}
	return &Vision{
		Name_:        "mock-timeout",
		IdentifyFunc: func(ctx context.Context, _ []models.Image) (string, error) { return block(ctx) },
		BestFunc:     func(ctx context.Context, _ []models.Image, _ string) (string, error) { return block(ctx) },
		SegmentFunc:  func(ctx context.Context, _ models.Image, _ string) (string, error) { return block(ctx) },
	}
}

// Synthesizer satisfies models.ImageSynthesizer for tests and local runs.
type Synthesizer struct {
	Name_       string
	EnhanceFunc func(ctx context.Context, cutout models.Image, product, style string) ([]byte, error)
}

func (m *Synthesizer) Name() string { return m.Name_ }

func (m *Synthesizer) Enhance(ctx context.Context, cutout models.Image, product, style string) ([]byte, error) {
	if m.EnhanceFunc != nil {
		return m.EnhanceFunc(ctx, cutout, product, style)
	}
	return nil, nil
}

// NewSynthesizer returns a Synthesizer that flattens the cutout onto a light
// grey canvas.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Name_: "mock",
		EnhanceFunc: func(_ context.Context, cutout models.Image, _, _ string) ([]byte, error) {
			src, err := imaging.Decode(bytes.NewReader(cutout.Data))
			if err != nil {
				return nil, err
			}
			b := src.Bounds()
			bg := imaging.New(b.Dx(), b.Dy(), color.NRGBA{R: 235, G: 235, B: 235, A: 255})
			return encodePNG(imaging.Overlay(bg, src, image.Pt(0, 0), 1.0))
		},
	}
}

// NewFailingSynthesizer returns a Synthesizer whose every call returns err.
func NewFailingSynthesizer(err error) *Synthesizer {
	return &Synthesizer{
		Name_: "mock-failing",
		EnhanceFunc: func(_ context.Context, _ models.Image, _, _ string) ([]byte, error) {
			return nil, err
		},
	}
}

// CenterMask returns a PNG mask the size of frame with its centre quarter white.
func CenterMask(frame models.Image) ([]byte, error) {
	w, h := 64, 64
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame.Data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}
	mask := imaging.New(w, h, color.Black)
	fg := imaging.New(max(w/2, 1), max(h/2, 1), color.White)
	return encodePNG(imaging.Paste(mask, fg, image.Pt(w/4, h/4)))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compile-time checks.
var (
	_ models.VisionProvider   = (*Vision)(nil)
	_ models.ImageSynthesizer = (*Synthesizer)(nil)
)
