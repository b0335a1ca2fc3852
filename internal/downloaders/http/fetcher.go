package splithttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanq16/splitdl/internal/ranges"
	"github.com/tanq16/splitdl/internal/throttle"
	"github.com/tanq16/splitdl/internal/utils"
)

// rangeFetcher downloads one assigned sub-range and feeds it to the writer
// in fixed-size increments, paying bucket tokens for every byte read.
type rangeFetcher struct {
	url       string
	rng       ranges.Range
	client    utils.HTTPDoer
	queue     chan<- Chunk
	bucket    *throttle.TokenBucket
	chunkSize int
}

// run returns the number of bytes emitted. Any error leaves the rest of the
// range missing for a later attempt.
func (f *rangeFetcher) run() (int64, error) {
	req, err := http.NewRequest("GET", f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Set("Range", f.rng.Header())
	req.Header.Set("Connection", "keep-alive")
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error executing GET request: %w", err)
	}
	defer resp.Body.Close()

	// a 200 carries the whole resource, so the body starts at offset 0
	var offset int64
	switch resp.StatusCode {
	case http.StatusPartialContent:
		offset = f.rng.Start
		if start, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok && start != f.rng.Start {
			return 0, fmt.Errorf("content range starts at %d, requested %d", start, f.rng.Start)
		}
	case http.StatusOK:
		offset = 0
	default:
		return 0, fmt.Errorf("%w: %d", utils.ErrUnexpectedStatus, resp.StatusCode)
	}

	var emitted int64
	for offset <= f.rng.End {
		want := min(int64(f.chunkSize), f.rng.End-offset+1)
		buf := make([]byte, want)
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if err := f.bucket.Take(int64(n)); err != nil {
				return emitted, err
			}
			end := offset + int64(n)
			if end > f.rng.Start {
				skip := max(0, f.rng.Start-offset)
				f.queue <- Chunk{Offset: offset + skip, Data: buf[skip:n]}
				emitted += int64(n) - skip
			}
			offset = end
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return emitted, nil
			}
			return emitted, fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	return emitted, nil
}

// contentRangeStart extracts the first byte position of a
// "bytes start-end/size" header.
func contentRangeStart(header string) (int64, bool) {
	spec, ok := strings.CutPrefix(header, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}
