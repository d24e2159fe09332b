package frames

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("frame_%04d.jpg", i)
	}
	return out
}

func TestSample_Stride(t *testing.T) {
	got := Sample(seq(90), 10)
	assert.Equal(t, []string{
		"frame_0000.jpg", "frame_0009.jpg", "frame_0018.jpg", "frame_0027.jpg", "frame_0036.jpg",
		"frame_0045.jpg", "frame_0054.jpg", "frame_0063.jpg", "frame_0072.jpg", "frame_0081.jpg",
	}, got)
}

func TestSample_TruncatesWhenStrideLeavesExtra(t *testing.T) {
	// 25/10 = stride 2 would yield 13 items before truncation.
	got := Sample(seq(25), 10)
	assert.Len(t, got, 10)
	assert.Equal(t, "frame_0000.jpg", got[0])
	assert.Equal(t, "frame_0018.jpg", got[9])
}

func TestSample_FewerThanMax(t *testing.T) {
	items := seq(4)
	got := Sample(items, 20)
	assert.Equal(t, items, got)
}

func TestSample_EmptyAndInvalid(t *testing.T) {
	assert.Empty(t, Sample([]string{}, 10))
	assert.NotNil(t, Sample([]string(nil), 10))
	assert.Empty(t, Sample(seq(5), 0))
}

func TestSample_Properties(t *testing.T) {
	for n := 1; n <= 130; n++ {
		for _, max := range []int{1, 3, 10, 20, 120} {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			got := Sample(items, max)
			again := Sample(items, max)

			assert.LessOrEqual(t, len(got), max, "n=%d max=%d", n, max)
			assert.NotEmpty(t, got, "n=%d max=%d", n, max)
			assert.Equal(t, got, again, "deterministic n=%d max=%d", n, max)
			for i := 1; i < len(got); i++ {
				assert.Less(t, got[i-1], got[i], "order preserved n=%d max=%d", n, max)
			}
		}
	}
}
