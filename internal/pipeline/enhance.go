package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/kiranshivaraju/studioshots/internal/throttle"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

func (r *jobRun) enhanceProducts(ctx context.Context) error {
	s := r.t.State()
	if len(s.SegmentedImages) == 0 {
		return fatal(StageEnhance, "No segmented images available for enhancement")
	}

	r.t.Step(75, "Enhancing product images...")

	enhanced := make(map[string][]string)
	errs := make(map[string]string)
	stems := r.fileStems()
	for _, p := range s.Products {
		cutoutPath, ok := s.SegmentedImages[p.Name]
		if !ok {
			continue
		}

		paths, problems, err := r.enhanceOne(ctx, p.Name, stems[p.Name], cutoutPath)
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			enhanced[p.Name] = paths
		}
		if len(problems) > 0 {
			errs[p.Name] = strings.Join(problems, "; ")
			slog.Warn("enhancement issues", "job_id", s.JobID, "product", p.Name, "errors", errs[p.Name])
		}
	}

	r.t.Update(func(s *models.JobState) {
		s.EnhancedImages = enhanced
		s.EnhancementErrors = errs
	})
	r.t.Complete(completionSummary(len(enhanced), len(errs)))
	return nil
}

// enhanceOne renders product in every background style. Per-style failures
// are returned as messages; only cancellation is an error.
func (r *jobRun) enhanceOne(ctx context.Context, product, stem, cutoutPath string) ([]string, []string, error) {
	cutout, err := loadImage(cutoutPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to load segmented image: %v", err)}, nil
	}

	var paths, problems []string
	for i, style := range BackgroundStyles {
		n := i + 1
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		r.t.Step(75, fmt.Sprintf("Enhancing %s (style %d/%d)...", product, n, len(BackgroundStyles)))

		data, err := throttle.Do(ctx, r.synth, func(ctx context.Context) ([]byte, error) {
			return r.deps.Synthesizer.Enhance(ctx, cutout, product, style)
		})
		if err != nil {
			problems = append(problems, fmt.Sprintf("Style %d: %v", n, err))
			continue
		}
		if len(data) == 0 {
			problems = append(problems, fmt.Sprintf("Style %d: No image returned (possibly rate limited)", n))
			continue
		}

		out := r.deps.Workspace.EnhancedPath(r.jobID(), stem, n)
		if err := saveAsPNG(data, out); err != nil {
			problems = append(problems, fmt.Sprintf("Style %d: %v", n, err))
			continue
		}
		paths = append(paths, out)
	}
	return paths, problems, nil
}

// saveAsPNG re-encodes whatever format the synthesizer returned.
func saveAsPNG(data []byte, path string) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid image returned: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}

func completionSummary(enhanced, withIssues int) string {
	if enhanced == 0 {
		return "Processing complete (enhancement failed for all products)"
	}
	step := "Processing complete!"
	if withIssues > 0 {
		step += fmt.Sprintf(" (%d products had enhancement issues)", withIssues)
	}
	return step
}
