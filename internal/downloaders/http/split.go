package splithttp

import "github.com/tanq16/splitdl/internal/ranges"

// splitRanges partitions every missing range into contiguous sub-ranges.
// A range gets ceil(length/minSplit) parts, at most maxWorkers, and the last
// part absorbs the remainder so the parts cover the range exactly.
func splitRanges(missing []ranges.Range, maxWorkers int, minSplit int64) []ranges.Range {
	maxWorkers = max(maxWorkers, 1)
	minSplit = max(minSplit, 1)
	var parts []ranges.Range
	for _, m := range missing {
		n := (m.Length() + minSplit - 1) / minSplit
		n = max(1, min(n, int64(maxWorkers)))
		size := m.Length() / n
		start := m.Start
		for i := int64(0); i < n; i++ {
			end := start + size - 1
			if i == n-1 {
				end = m.End
			}
			parts = append(parts, ranges.Range{Start: start, End: end})
			start = end + 1
		}
	}
	return parts
}
