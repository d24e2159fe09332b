// Package models contains shared data models used across the studioshots codebase.
package models

import "context"

// Image is an encoded image handed to a remote model.
type Image struct {
	Data     []byte
	MIMEType string
}

// VisionProvider is the structured-extraction endpoint used for product
// identification, best-frame selection and segmentation.
// Implementations return the model's raw text; callers validate it before use.
// Never call a concrete vendor client directly; inject this interface.
type VisionProvider interface {
	// IdentifyProducts asks for a JSON array of {name, description}.
	IdentifyProducts(ctx context.Context, frames []Image) (string, error)
	// SelectBestFrame asks for {"best_frame_index": n} over the given frames.
	SelectBestFrame(ctx context.Context, frames []Image, product string) (string, error)
	// Segment asks for a mask object ({"mask", "box_2d", "label"}) for product.
	Segment(ctx context.Context, frame Image, product string) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "mock").
	Name() string
}

// ImageSynthesizer is the image-synthesis endpoint used for enhancement.
type ImageSynthesizer interface {
	// Enhance renders product on the given background style and returns the
	// encoded image. An empty result with a nil error means nothing came back.
	Enhance(ctx context.Context, cutout Image, product, style string) ([]byte, error)
	Name() string
}
