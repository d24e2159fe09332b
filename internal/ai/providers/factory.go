// Package providers builds the configured vision and synthesis endpoints.
package providers

import (
	"fmt"

	"github.com/kiranshivaraju/studioshots/internal/ai/gemini"
	"github.com/kiranshivaraju/studioshots/internal/ai/huggingface"
	"github.com/kiranshivaraju/studioshots/internal/ai/mock"
	"github.com/kiranshivaraju/studioshots/internal/config"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// NewVision constructs the vision provider named in config.
// Called once at server startup.
func NewVision(cfg config.AIConfig) (models.VisionProvider, error) {
	switch cfg.VisionProvider {
	case "gemini":
		return gemini.NewProvider(cfg.Gemini, cfg.RequestTimeout), nil
	case "mock":
		return mock.NewVision(), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q: must be one of gemini, mock", cfg.VisionProvider)
	}
}

// NewSynthesizer constructs the image synthesizer named in config.
func NewSynthesizer(cfg config.AIConfig) (models.ImageSynthesizer, error) {
	switch cfg.SynthesisProvider {
	case "huggingface":
		return huggingface.NewProvider(cfg.HuggingFace, cfg.RequestTimeout), nil
	case "gemini":
		return gemini.NewProvider(cfg.Gemini, cfg.RequestTimeout), nil
	case "mock":
		return mock.NewSynthesizer(), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q: must be one of huggingface, gemini, mock", cfg.SynthesisProvider)
	}
}
