package ranges

import (
	"errors"
	"fmt"
)

var ErrInvalidRange = errors.New("invalid range")

// Range is a closed interval [Start, End] of byte offsets.
type Range struct {
	Start int64 `yaml:"start"`
	End   int64 `yaml:"end"`
}

func New(start, end int64) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start < 0 || r.Start > r.End {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Length is the byte count; both ends are inclusive.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// Mergeable reports whether r and o overlap or touch.
func (r Range) Mergeable(o Range) bool {
	return r.Start <= o.End+1 && o.Start <= r.End+1
}

// Header renders the value for an HTTP Range request header.
func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("[%d-%d]", r.Start, r.End)
}
