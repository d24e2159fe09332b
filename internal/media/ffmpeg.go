package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// VideoInfo is what ffprobe reports about the first video stream.
type VideoInfo struct {
	FPS        float64
	FrameCount int // 0 when the container does not record it
}

// FrameExtractor probes a video and saves sampled frames.
type FrameExtractor interface {
	Probe(ctx context.Context, videoPath string) (VideoInfo, error)
	// Extract saves every interval-th frame, at most limit, as
	// outDir/frame_%04d.jpg and returns the paths in playback order.
	Extract(ctx context.Context, videoPath, outDir string, interval, limit int) ([]string, error)
}

// FrameInterval is the sampling stride for a video: roughly one frame per
// second of playback, never less than 1.
func FrameInterval(fps float64) int {
	return max(int(math.Round(fps)), 1)
}

// ExpectedFrames is the number of frames Extract yields for info.
func ExpectedFrames(info VideoInfo, limit int) int {
	if info.FrameCount <= 0 {
		return limit
	}
	interval := FrameInterval(info.FPS)
	n := (info.FrameCount + interval - 1) / interval
	return min(n, limit)
}

// FFmpeg implements FrameExtractor with the ffprobe and ffmpeg CLIs.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
}

// NewFFmpeg creates an extractor. A nil runner uses ExecRunner.
func NewFFmpeg(ffmpegPath, ffprobePath string, runner Runner) *FFmpeg {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: runner}
}

type probeOutput struct {
	Streams []struct {
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

func (f *FFmpeg) Probe(ctx context.Context, videoPath string) (VideoInfo, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return VideoInfo{}, ErrVideoNotFound
	}

	stdout, stderr, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate,nb_frames",
		"-of", "json",
		videoPath,
	)
	if err != nil {
		return VideoInfo{}, toolError("ffprobe", stderr, err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return VideoInfo{}, fmt.Errorf("decoding ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return VideoInfo{}, errors.New("no video stream")
	}

	s := out.Streams[0]
	fps, err := parseRate(s.RFrameRate)
	if err != nil || fps <= 0 {
		fps, err = parseRate(s.AvgFrameRate)
	}
	if err != nil || fps <= 0 {
		return VideoInfo{}, fmt.Errorf("unreadable frame rate %q", s.RFrameRate)
	}

	count, _ := strconv.Atoi(s.NbFrames)
	return VideoInfo{FPS: fps, FrameCount: count}, nil
}

func (f *FFmpeg) Extract(ctx context.Context, videoPath, outDir string, interval, limit int) ([]string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, ErrVideoNotFound
	}
	if interval < 1 {
		interval = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating frames dir: %w", err)
	}

	_, stderr, err := f.runner.Run(ctx, f.ffmpegPath,
		"-v", "error",
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=not(mod(n\,%d))`, interval),
		"-vsync", "vfr",
		"-frames:v", strconv.Itoa(limit),
		"-q:v", "2",
		"-start_number", "0",
		filepath.Join(outDir, "frame_%04d.jpg"),
	)
	if err != nil {
		return nil, toolError("ffmpeg", stderr, err)
	}

	paths, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}
	// zero-padded names sort in playback order
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

// parseRate reads ffprobe's "num/den" rational.
func parseRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, errors.New("zero denominator")
	}
	return n / d, nil
}

func toolError(tool string, stderr []byte, err error) error {
	if msg := lastLine(stderr); msg != "" {
		return fmt.Errorf("%s: %s", tool, msg)
	}
	return fmt.Errorf("%s: %w", tool, err)
}
