package ranges

import (
	"slices"
	"sort"
)

// Store is the ordered set of downloaded byte ranges for one resource.
// Stored ranges are sorted by Start and no two of them overlap or touch,
// so its size tracks the number of contiguous fragments rather than the
// resource size.
type Store struct {
	ranges     []Range
	downloaded int64

	missing      []Range
	missingTotal int64
	missingValid bool
}

func NewStore() *Store {
	return &Store{}
}

// Add inserts r, coalescing it with every stored range it overlaps or touches.
func (s *Store) Add(r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	// first stored range that ends at or after r.Start-1
	i := sort.Search(len(s.ranges), func(k int) bool {
		return s.ranges[k].End+1 >= r.Start
	})
	merged := r
	var absorbed int64
	j := i
	for ; j < len(s.ranges) && s.ranges[j].Start <= r.End+1; j++ {
		cur := s.ranges[j]
		if cur.Contains(r) {
			return nil
		}
		merged.Start = min(merged.Start, cur.Start)
		merged.End = max(merged.End, cur.End)
		absorbed += cur.Length()
	}
	s.ranges = slices.Replace(s.ranges, i, j, merged)
	s.downloaded += merged.Length() - absorbed
	s.missingValid = false
	return nil
}

// Ranges returns a copy of the stored ranges.
func (s *Store) Ranges() []Range {
	return slices.Clone(s.ranges)
}

func (s *Store) Len() int {
	return len(s.ranges)
}

// Downloaded is the total number of bytes covered by the store.
func (s *Store) Downloaded() int64 {
	return s.downloaded
}

// Missing returns the sorted complement of the stored ranges within
// [0, total). The result is cached until the next Add.
func (s *Store) Missing(total int64) []Range {
	if s.missingValid && s.missingTotal == total {
		return slices.Clone(s.missing)
	}
	var missing []Range
	var next int64
	for _, r := range s.ranges {
		if next >= total {
			break
		}
		if r.Start > next {
			missing = append(missing, Range{Start: next, End: min(r.Start, total) - 1})
		}
		next = max(next, r.End+1)
	}
	if next < total {
		missing = append(missing, Range{Start: next, End: total - 1})
	}
	s.missing = missing
	s.missingTotal = total
	s.missingValid = true
	return slices.Clone(missing)
}

func (s *Store) IsCompleted(total int64) bool {
	return len(s.Missing(total)) == 0
}
