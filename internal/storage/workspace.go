// Package storage lays out per-job working directories on local disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidPath is returned when a requested file would escape its job area.
var ErrInvalidPath = errors.New("invalid storage path")

// Image areas inside a job directory.
const (
	AreaFrames    = "frames"
	AreaMasks     = "masks"
	AreaSegmented = "segmented"
	AreaEnhanced  = "enhanced"
)

var areas = []string{AreaFrames, AreaMasks, AreaSegmented, AreaEnhanced}

// Workspace roots every job under <root>/<jobID>.
type Workspace struct {
	root string
}

func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) JobDir(jobID string) string {
	return filepath.Join(w.root, jobID)
}

func (w *Workspace) VideoPath(jobID string) string {
	return filepath.Join(w.JobDir(jobID), "video.mp4")
}

func (w *Workspace) AreaDir(jobID, area string) string {
	return filepath.Join(w.JobDir(jobID), area)
}

// The per-product paths take a stem from FileStems, not a raw product name.

func (w *Workspace) MaskPath(jobID, stem string) string {
	return filepath.Join(w.AreaDir(jobID, AreaMasks), stem+"_mask.png")
}

func (w *Workspace) SegmentedPath(jobID, stem string) string {
	return filepath.Join(w.AreaDir(jobID, AreaSegmented), stem+"_segmented.png")
}

// EnhancedPath is the output for style index i (1-based).
func (w *Workspace) EnhancedPath(jobID, stem string, i int) string {
	return filepath.Join(w.AreaDir(jobID, AreaEnhanced), fmt.Sprintf("%s_enhanced_%d.png", stem, i))
}

// Prepare creates the job directory and all of its areas.
func (w *Workspace) Prepare(jobID string) error {
	if !validJobID(jobID) {
		return fmt.Errorf("%w: job id %q", ErrInvalidPath, jobID)
	}
	for _, a := range areas {
		if err := os.MkdirAll(w.AreaDir(jobID, a), 0o755); err != nil {
			return fmt.Errorf("creating %s dir: %w", a, err)
		}
	}
	return nil
}

// Remove deletes the job directory recursively. A missing directory is not
// an error.
func (w *Workspace) Remove(jobID string) error {
	if !validJobID(jobID) {
		return fmt.Errorf("%w: job id %q", ErrInvalidPath, jobID)
	}
	if err := os.RemoveAll(w.JobDir(jobID)); err != nil {
		return fmt.Errorf("removing job dir: %w", err)
	}
	return nil
}

// ResolveImage maps an (area, filename) request to a file inside the job.
// Only known areas and bare filenames are accepted.
func (w *Workspace) ResolveImage(jobID, area, filename string) (string, error) {
	if !validJobID(jobID) {
		return "", fmt.Errorf("%w: job id %q", ErrInvalidPath, jobID)
	}
	known := false
	for _, a := range areas {
		if a == area {
			known = true
			break
		}
	}
	if !known {
		return "", fmt.Errorf("%w: unknown image type %q", ErrInvalidPath, area)
	}
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidPath, filename)
	}
	return filepath.Join(w.AreaDir(jobID, area), filename), nil
}

func validJobID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

var (
	unsafeChars = regexp.MustCompile(`[()/\\:*?"<>|]`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeFilename turns a product name into a filesystem-safe stem:
// spaces become underscores, reserved characters are dropped and runs of
// underscores collapse.
func SanitizeFilename(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "product"
	}
	return s
}

// FileStems assigns every product a sanitized stem that is unique within the
// job. Names that sanitize to the same stem get _2, _3, ... in list order, so
// the first occurrence keeps the plain stem.
func FileStems(products []string) map[string]string {
	stems := make(map[string]string, len(products))
	used := make(map[string]bool, len(products))
	for _, p := range products {
		if _, ok := stems[p]; ok {
			continue
		}
		base := SanitizeFilename(p)
		stem := base
		for n := 2; used[stem]; n++ {
			stem = fmt.Sprintf("%s_%d", base, n)
		}
		used[stem] = true
		stems[p] = stem
	}
	return stems
}
