package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kiranshivaraju/studioshots/internal/media"
	"github.com/kiranshivaraju/studioshots/internal/storage"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

func (r *jobRun) download(ctx context.Context) error {
	s := r.t.State()
	r.t.Step(0, "Downloading video...")

	if err := r.deps.Workspace.Prepare(s.JobID); err != nil {
		return fatalCause(StageDownload, "Failed to download video", err)
	}

	dest := r.deps.Workspace.VideoPath(s.JobID)
	if err := r.deps.Fetcher.Fetch(ctx, s.VideoURL, dest); err != nil {
		return fatalCause(StageDownload, "Failed to download video", err)
	}

	r.t.Update(func(s *models.JobState) {
		s.VideoPath = dest
		s.Progress = 20
		s.CurrentStep = "Video downloaded"
	})
	return nil
}

func (r *jobRun) extractFrames(ctx context.Context) error {
	s := r.t.State()
	if s.VideoPath == "" {
		return fatal(StageExtract, "Video file not found")
	}
	if _, err := os.Stat(s.VideoPath); err != nil {
		return fatal(StageExtract, "Video file not found")
	}

	info, err := r.deps.Extractor.Probe(ctx, s.VideoPath)
	if err != nil {
		if errors.Is(err, media.ErrVideoNotFound) {
			return fatal(StageExtract, "Video file not found")
		}
		return fatalCause(StageExtract, "Failed to extract frames", err)
	}

	interval := media.FrameInterval(info.FPS)
	slog.Info("extracting frames",
		"job_id", s.JobID,
		"fps", info.FPS,
		"frame_count", info.FrameCount,
		"interval", interval,
		"expected", media.ExpectedFrames(info, r.cfg.MaxFrames),
	)

	framesDir := r.deps.Workspace.AreaDir(s.JobID, storage.AreaFrames)
	paths, err := r.deps.Extractor.Extract(ctx, s.VideoPath, framesDir, interval, r.cfg.MaxFrames)
	if err != nil {
		if errors.Is(err, media.ErrVideoNotFound) {
			return fatal(StageExtract, "Video file not found")
		}
		return fatalCause(StageExtract, "Failed to extract frames", err)
	}
	if len(paths) > r.cfg.MaxFrames {
		paths = paths[:r.cfg.MaxFrames]
	}

	r.t.Update(func(s *models.JobState) {
		s.Frames = paths
		s.Progress = 30
		s.CurrentStep = fmt.Sprintf("Extracted %d frames", len(paths))
	})
	return nil
}
