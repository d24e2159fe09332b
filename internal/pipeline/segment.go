package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/kiranshivaraju/studioshots/internal/ai"
	"github.com/kiranshivaraju/studioshots/internal/throttle"
	"github.com/kiranshivaraju/studioshots/pkg/mask"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

func (r *jobRun) segmentProducts(ctx context.Context) error {
	s := r.t.State()
	if len(s.BestFrames) == 0 {
		return fatal(StageSegment, "No frames available for segmentation")
	}

	r.t.Step(60, "Segmenting products...")

	outcomes := make([]Outcome, 0, len(s.BestFrames))
	masks := make(map[string]string)
	stems := r.fileStems()
	for _, p := range s.Products {
		framePath, ok := s.BestFrames[p.Name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		o, maskPath := r.segmentOne(ctx, p.Name, stems[p.Name], framePath)
		if !o.OK() {
			slog.Warn("segmentation failed", "job_id", s.JobID, "product", p.Name, "reason", o.Reason)
		}
		if maskPath != "" {
			masks[p.Name] = maskPath
		}
		outcomes = append(outcomes, o)
	}

	segmented, errs := partition(outcomes)
	r.t.Update(func(s *models.JobState) {
		s.SegmentationMasks = masks
		s.SegmentedImages = segmented
		s.SegmentationErrors = errs
		s.Progress = 70
		s.CurrentStep = segmentationSummary(len(segmented), len(errs))
	})
	return nil
}

// segmentOne returns the outcome for product and the saved mask path, if any.
func (r *jobRun) segmentOne(ctx context.Context, product, stem, framePath string) (Outcome, string) {
	frame, err := loadImage(framePath)
	if err != nil {
		return failed(product, fmt.Sprintf("Segmentation failed: %v", err)), ""
	}

	raw, err := throttle.Do(ctx, r.vision, func(ctx context.Context) (string, error) {
		return r.deps.Vision.Segment(ctx, frame, product)
	})
	if err != nil {
		return failed(product, fmt.Sprintf("Segmentation failed: %v", err)), ""
	}

	seg, err := ai.ParseSegmentation(raw)
	if errors.Is(err, ai.ErrNoMask) {
		return failed(product, "No segmentation mask returned"), ""
	}
	if err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), ""
	}

	// the model may hand back any raster format; masks on disk are always PNG
	maskImg, err := imaging.Decode(bytes.NewReader(seg.Mask))
	if err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), ""
	}
	maskPath := r.deps.Workspace.MaskPath(r.jobID(), stem)
	if err := imaging.Save(maskImg, maskPath); err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), ""
	}

	src, err := imaging.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), maskPath
	}
	cutout, err := mask.Composite(src, seg.Mask)
	if err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), maskPath
	}

	outPath := r.deps.Workspace.SegmentedPath(r.jobID(), stem)
	if err := imaging.Save(cutout, outPath); err != nil {
		return failed(product, fmt.Sprintf("Failed to process mask: %v", err)), maskPath
	}
	return succeeded(product, outPath), maskPath
}

func segmentationSummary(ok, failed int) string {
	if ok == 0 {
		return "Segmentation failed for all products"
	}
	step := fmt.Sprintf("Segmented %d product(s)", ok)
	if failed > 0 {
		step += fmt.Sprintf(" (%d failed)", failed)
	}
	return step
}
