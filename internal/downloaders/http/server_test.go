package splithttp

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/tanq16/splitdl/internal/ranges"
)

// rangeServer serves data with HEAD and byte-range GET support and records
// every range it was asked for.
type rangeServer struct {
	*httptest.Server
	data []byte

	mu        sync.Mutex
	requested []ranges.Range
	gets      int

	// failGets makes the first N GET requests answer 500
	failGets int
	// truncate cuts every GET body after this many bytes when positive
	truncate int
	// ignoreRange answers GETs with the whole body and a 200
	ignoreRange bool
	// noLength drops Content-Length from HEAD responses
	noLength bool
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte((i * 31) % 251)
	}
	return data
}

func newRangeServer(t *testing.T, data []byte, configure func(s *rangeServer)) *rangeServer {
	t.Helper()
	s := &rangeServer{data: data}
	if configure != nil {
		configure(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *rangeServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		if !s.noLength {
			w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		}
		w.Header().Set("Accept-Ranges", "bytes")
		return
	}

	s.mu.Lock()
	s.gets++
	fail := s.gets <= s.failGets
	truncate := s.truncate
	s.mu.Unlock()
	if fail {
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	start, end := int64(0), int64(len(s.data)-1)
	header := r.Header.Get("Range")
	if header != "" {
		spec := strings.TrimPrefix(header, "bytes=")
		parts := strings.Split(spec, "-")
		start, _ = strconv.ParseInt(parts[0], 10, 64)
		end, _ = strconv.ParseInt(parts[1], 10, 64)
		if end >= int64(len(s.data)) {
			end = int64(len(s.data)) - 1
		}
		s.mu.Lock()
		s.requested = append(s.requested, ranges.Range{Start: start, End: end})
		s.mu.Unlock()
	}

	body := s.data[start : end+1]
	if s.ignoreRange || header == "" {
		body = s.data
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	} else {
		w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.Itoa(len(s.data)))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusPartialContent)
	}
	if truncate > 0 && truncate < len(body) {
		w.Write(body[:truncate])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// returning early with a short body makes the server drop the connection
		return
	}
	w.Write(body)
}

func (s *rangeServer) requestedRanges() []ranges.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ranges.Range(nil), s.requested...)
}

func (s *rangeServer) setTruncate(n int) {
	s.mu.Lock()
	s.truncate = n
	s.mu.Unlock()
}
