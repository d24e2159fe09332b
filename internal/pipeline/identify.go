package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/studioshots/internal/ai"
	"github.com/kiranshivaraju/studioshots/internal/throttle"
	"github.com/kiranshivaraju/studioshots/pkg/frames"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

func (r *jobRun) identifyProducts(ctx context.Context) error {
	s := r.t.State()
	if len(s.Frames) == 0 {
		return fatal(StageIdentify, "No frames available for analysis")
	}

	r.t.Step(40, "Identifying products...")

	sample, err := loadImages(frames.Sample(s.Frames, identifySampleSize))
	if err != nil {
		return fatalCause(StageIdentify, "Failed to identify products", err)
	}

	raw, err := throttle.Do(ctx, r.vision, func(ctx context.Context) (string, error) {
		return r.deps.Vision.IdentifyProducts(ctx, sample)
	})
	if err != nil {
		return fatalCause(StageIdentify, "Failed to identify products", err)
	}

	products, err := ai.ParseProducts(raw)
	if err != nil {
		slog.Warn("unusable identification response", "job_id", s.JobID, "error", err)
		return fatal(StageIdentify, "No products found in video")
	}

	r.t.Update(func(s *models.JobState) {
		s.Products = products
		s.Progress = 50
		s.CurrentStep = "Selecting best frames..."
	})

	candidates := frames.Sample(s.Frames, bestFrameSampleSize)
	images, err := loadImages(candidates)
	if err != nil {
		return fatalCause(StageIdentify, "Failed to identify products", err)
	}

	best := make(map[string]string, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		best[p.Name] = candidates[r.bestFrameIndex(ctx, images, p.Name)]
	}

	r.t.Update(func(s *models.JobState) {
		s.BestFrames = best
		s.Progress = 55
		s.CurrentStep = fmt.Sprintf("Found %d product(s)", len(products))
	})
	return nil
}

// bestFrameIndex asks for the clearest frame of product. Any failure falls
// back to the first candidate.
func (r *jobRun) bestFrameIndex(ctx context.Context, images []models.Image, product string) int {
	raw, err := throttle.Do(ctx, r.vision, func(ctx context.Context) (string, error) {
		return r.deps.Vision.SelectBestFrame(ctx, images, product)
	})
	if err != nil {
		slog.Warn("best frame selection failed, using first frame",
			"job_id", r.jobID(), "product", product, "error", err)
		return 0
	}

	idx, err := ai.ParseBestFrameIndex(raw, len(images))
	if err != nil {
		slog.Warn("unusable best frame response, using first frame",
			"job_id", r.jobID(), "product", product, "error", err)
		return 0
	}
	return idx
}
