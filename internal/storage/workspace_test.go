package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/studioshots/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Wireless Earbuds":          "Wireless_Earbuds",
		"Mug (Large)":               "Mug_Large",
		`a/b\c:d*e?f"g<h>i|j`:       "abcdefghij",
		"  spaced   out  ":          "spaced_out",
		"already_safe":              "already_safe",
		"???":                       "product",
		"Lamp - 12\" Brass / Steel": "Lamp_-_12_Brass_Steel",
	}
	for in, want := range cases {
		assert.Equal(t, want, storage.SanitizeFilename(in), "input %q", in)
	}
}

func TestWorkspace_Paths(t *testing.T) {
	w := storage.NewWorkspace("/data")

	assert.Equal(t, filepath.Join("/data", "j1", "video.mp4"), w.VideoPath("j1"))
	assert.Equal(t, filepath.Join("/data", "j1", "masks", "Desk_Lamp_mask.png"), w.MaskPath("j1", "Desk_Lamp"))
	assert.Equal(t, filepath.Join("/data", "j1", "segmented", "Desk_Lamp_segmented.png"), w.SegmentedPath("j1", "Desk_Lamp"))
	assert.Equal(t, filepath.Join("/data", "j1", "enhanced", "Desk_Lamp_enhanced_2.png"), w.EnhancedPath("j1", "Desk_Lamp", 2))
}

func TestFileStems_CollidingNames(t *testing.T) {
	stems := storage.FileStems([]string{"Phone (Black)", "Phone Black", "Mug", "Phone Black_2", "Phone  Black"})

	assert.Equal(t, map[string]string{
		"Phone (Black)": "Phone_Black",
		"Phone Black":   "Phone_Black_2",
		"Mug":           "Mug",
		"Phone Black_2": "Phone_Black_2_2",
		"Phone  Black":  "Phone_Black_3",
	}, stems)
}

func TestFileStems_DuplicateNameKeepsOneStem(t *testing.T) {
	stems := storage.FileStems([]string{"Mug", "Mug"})
	assert.Equal(t, map[string]string{"Mug": "Mug"}, stems)
}

func TestWorkspace_PrepareAndRemove(t *testing.T) {
	w := storage.NewWorkspace(t.TempDir())

	require.NoError(t, w.Prepare("job-1"))
	for _, area := range []string{"frames", "masks", "segmented", "enhanced"} {
		info, err := os.Stat(w.AreaDir("job-1", area))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	require.NoError(t, os.WriteFile(filepath.Join(w.AreaDir("job-1", "frames"), "frame_0000.jpg"), []byte("x"), 0o644))
	require.NoError(t, w.Remove("job-1"))
	_, err := os.Stat(w.JobDir("job-1"))
	assert.True(t, os.IsNotExist(err))

	// removing again is fine
	assert.NoError(t, w.Remove("job-1"))
}

func TestWorkspace_RejectsTraversalJobIDs(t *testing.T) {
	root := t.TempDir()
	w := storage.NewWorkspace(root)

	for _, id := range []string{"", ".", "..", "../etc", `a\b`} {
		assert.ErrorIs(t, w.Prepare(id), storage.ErrInvalidPath, "id %q", id)
		assert.ErrorIs(t, w.Remove(id), storage.ErrInvalidPath, "id %q", id)
	}
	_, err := os.Stat(root)
	assert.NoError(t, err)
}

func TestWorkspace_ResolveImage(t *testing.T) {
	w := storage.NewWorkspace("/data")

	p, err := w.ResolveImage("j1", "enhanced", "Mug_enhanced_1.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "j1", "enhanced", "Mug_enhanced_1.png"), p)

	bad := []struct{ area, file string }{
		{"video", "video.mp4"},
		{"", "x.png"},
		{"frames", "../video.mp4"},
		{"frames", ".."},
		{"frames", ""},
		{"frames", `..\x.png`},
	}
	for _, b := range bad {
		_, err := w.ResolveImage("j1", b.area, b.file)
		assert.ErrorIs(t, err, storage.ErrInvalidPath, "area %q file %q", b.area, b.file)
	}
}
