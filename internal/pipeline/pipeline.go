// Package pipeline turns a video URL into studio product shots through the
// download, extract, identify, segment and enhance stages.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/studioshots/internal/media"
	"github.com/kiranshivaraju/studioshots/internal/storage"
	"github.com/kiranshivaraju/studioshots/internal/throttle"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// Stage names.
const (
	StageDownload = "download"
	StageExtract  = "extract_frames"
	StageIdentify = "identify_products"
	StageSegment  = "segment_products"
	StageEnhance  = "enhance_products"
)

// Frame sample sizes sent to the vision endpoint.
const (
	identifySampleSize  = 10
	bestFrameSampleSize = 20
)

// BackgroundStyles are the studio settings each product is rendered into.
var BackgroundStyles = []string{
	"a clean white studio background with soft shadows and professional lighting",
	"a modern minimalist desk setup with natural wood texture",
	"a gradient background transitioning from deep purple to electric blue",
}

// Deps are the external collaborators of a run.
type Deps struct {
	Fetcher     media.Fetcher
	Extractor   media.FrameExtractor
	Vision      models.VisionProvider
	Synthesizer models.ImageSynthesizer
	Workspace   *storage.Workspace
}

// Config tunes a run. Throttle configs are instantiated per job.
type Config struct {
	MaxFrames         int
	VisionThrottle    throttle.Config
	SynthesisThrottle throttle.Config
}

// Pipeline runs jobs. It is safe for concurrent use; every Run gets its own
// throttle clients.
type Pipeline struct {
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) *Pipeline {
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = 120
	}
	if cfg.VisionThrottle.Name == "" {
		cfg.VisionThrottle.Name = "vision"
	}
	if cfg.SynthesisThrottle.Name == "" {
		cfg.SynthesisThrottle.Name = "synthesis"
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Run drives state to a terminal status, publishing a snapshot after every
// change. The returned error is informational; the outcome is in the state.
func (p *Pipeline) Run(ctx context.Context, state *models.JobState, publish func(models.JobState)) error {
	r := &jobRun{
		deps:   p.deps,
		cfg:    p.cfg,
		t:      NewTracker(state, publish),
		vision: throttle.New(p.cfg.VisionThrottle),
		synth:  throttle.New(p.cfg.SynthesisThrottle),
	}

	exec, err := NewExecutor(r.stages()...)
	if err != nil {
		r.t.Fail(err.Error())
		return err
	}
	return exec.Execute(ctx, r.t)
}

// jobRun is the per-job context shared by the stages.
type jobRun struct {
	deps   Deps
	cfg    Config
	t      *Tracker
	vision *throttle.Client
	synth  *throttle.Client
}

func (r *jobRun) stages() []Stage {
	return []Stage{
		{Name: StageDownload, Run: r.download},
		{Name: StageExtract, After: []string{StageDownload}, Run: r.extractFrames},
		{Name: StageIdentify, After: []string{StageExtract}, Run: r.identifyProducts},
		{Name: StageSegment, After: []string{StageIdentify}, Run: r.segmentProducts},
		{Name: StageEnhance, After: []string{StageSegment}, Run: r.enhanceProducts},
	}
}

func (r *jobRun) jobID() string { return r.t.State().JobID }

// fileStems maps each identified product to its on-disk name. It depends only
// on the product list, so every stage derives the same stems.
func (r *jobRun) fileStems() map[string]string {
	products := r.t.State().Products
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return storage.FileStems(names)
}

func loadImage(path string) (models.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	var mime string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".png":
		mime = "image/png"
	default:
		mime = http.DetectContentType(data)
	}
	return models.Image{Data: data, MIMEType: mime}, nil
}

func loadImages(paths []string) ([]models.Image, error) {
	out := make([]models.Image, 0, len(paths))
	for _, p := range paths {
		img, err := loadImage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}
