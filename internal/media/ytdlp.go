package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads a video URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// YtDlp fetches videos with the yt-dlp CLI.
type YtDlp struct {
	path    string
	runner  Runner
	timeout time.Duration
}

// NewYtDlp creates a fetcher. A nil runner uses ExecRunner; a zero timeout
// relies on the caller's context alone.
func NewYtDlp(path string, runner Runner, timeout time.Duration) *YtDlp {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &YtDlp{path: path, runner: runner, timeout: timeout}
}

// Fetch downloads url to dest, preferring an mp4 rendition.
func (y *YtDlp) Fetch(ctx context.Context, url, dest string) error {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}

	_, stderr, err := y.runner.Run(ctx, y.path,
		"-f", "best[ext=mp4]/best",
		"-o", dest,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		url,
	)
	if err != nil {
		if msg := lastLine(stderr); msg != "" {
			return fmt.Errorf("yt-dlp: %s", msg)
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}

	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("yt-dlp produced no file at %s", filepath.Base(dest))
	}
	return nil
}
