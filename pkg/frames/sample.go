// Package frames holds pure helpers for working with extracted video frames.
package frames

// Sample picks at most max items from items at an even stride of
// max(len(items)/max, 1), preserving their original order.
// It returns an empty slice (never nil) when items is empty or max < 1.
func Sample[T any](items []T, max int) []T {
	if len(items) == 0 || max < 1 {
		return []T{}
	}

	stride := len(items) / max
	if stride < 1 {
		stride = 1
	}

	out := make([]T, 0, min(max, len(items)))
	for i := 0; i < len(items) && len(out) < max; i += stride {
		out = append(out, items[i])
	}
	return out
}
