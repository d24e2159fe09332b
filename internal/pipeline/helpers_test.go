package pipeline_test

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kiranshivaraju/studioshots/internal/ai/mock"
	"github.com/kiranshivaraju/studioshots/internal/media"
	"github.com/kiranshivaraju/studioshots/internal/pipeline"
	"github.com/kiranshivaraju/studioshots/internal/storage"
	"github.com/kiranshivaraju/studioshots/internal/throttle"
	"github.com/kiranshivaraju/studioshots/pkg/models"
	"github.com/stretchr/testify/require"
)

// fakeFetcher writes a placeholder video unless err is set.
type fakeFetcher struct {
	err     error
	noWrite bool
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, dest string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.noWrite {
		return nil
	}
	return os.WriteFile(dest, []byte("video"), 0o644)
}

// fakeExtractor writes as many real JPEG frames as ffmpeg would for info.
type fakeExtractor struct {
	info         media.VideoInfo
	probeErr     error
	extractErr   error
	extractCalls int
	gotInterval  int
}

func (f *fakeExtractor) Probe(context.Context, string) (media.VideoInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeExtractor) Extract(_ context.Context, _, outDir string, interval, limit int) ([]string, error) {
	f.extractCalls++
	f.gotInterval = interval
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	n := media.ExpectedFrames(f.info, limit)
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("frame_%04d.jpg", i))
		img := imaging.New(16, 8, color.NRGBA{R: uint8(i), G: 120, B: 200, A: 255})
		if err := imaging.Save(img, p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// recorder collects published snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps []models.JobState
}

func (r *recorder) publish(s models.JobState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.CurrentStep
	}
	return out
}

func (r *recorder) progress() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.Progress
	}
	return out
}

type fixture struct {
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	vision    *mock.Vision
	synth     *mock.Synthesizer
	ws        *storage.Workspace
	rec       *recorder
}

// newFixture is a 90 second, 30 fps video with one product and working
// providers.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		fetcher:   &fakeFetcher{},
		extractor: &fakeExtractor{info: media.VideoInfo{FPS: 30, FrameCount: 2700}},
		vision:    mock.NewVision(),
		synth:     mock.NewSynthesizer(),
		ws:        storage.NewWorkspace(t.TempDir()),
		rec:       &recorder{},
	}
}

func fastThrottle(name string) throttle.Config {
	return throttle.Config{
		Name:       name,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	}
}

func (f *fixture) run(t *testing.T, ctx context.Context) (*models.JobState, error) {
	t.Helper()
	p := pipeline.New(pipeline.Deps{
		Fetcher:     f.fetcher,
		Extractor:   f.extractor,
		Vision:      f.vision,
		Synthesizer: f.synth,
		Workspace:   f.ws,
	}, pipeline.Config{
		MaxFrames:         120,
		VisionThrottle:    fastThrottle("vision"),
		SynthesisThrottle: fastThrottle("synthesis"),
	})

	state := models.NewJobState("job-1", "https://www.youtube.com/watch?v=abc")
	err := p.Run(ctx, state, f.rec.publish)
	return state, err
}

func requireFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, "expected file %s", path)
	require.False(t, info.IsDir())
}
