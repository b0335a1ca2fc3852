package splithttp

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/splitdl/internal/ranges"
	"github.com/tanq16/splitdl/internal/throttle"
	"github.com/tanq16/splitdl/internal/utils"
)

func runFetcher(t *testing.T, srv *rangeServer, rng ranges.Range, chunkSize int) ([]Chunk, int64, error) {
	t.Helper()
	queue := make(chan Chunk, len(srv.data)+1)
	f := &rangeFetcher{
		url:       srv.URL + "/file.bin",
		rng:       rng,
		client:    utils.NewHTTPClient(utils.HTTPClientConfig{}),
		queue:     queue,
		bucket:    throttle.NewUnlimitedBucket(),
		chunkSize: chunkSize,
	}
	n, err := f.run()
	close(queue)
	var chunks []Chunk
	for c := range queue {
		chunks = append(chunks, c)
	}
	return chunks, n, err
}

// reassemble checks chunks are contiguous from rng.Start and returns their bytes.
func reassemble(t *testing.T, start int64, chunks []Chunk) []byte {
	t.Helper()
	var out []byte
	next := start
	for _, c := range chunks {
		require.Equal(t, next, c.Offset)
		out = append(out, c.Data...)
		next += int64(c.Length())
	}
	return out
}

func TestFetcherPartialContent(t *testing.T) {
	data := testData(10_000)
	srv := newRangeServer(t, data, nil)
	rng := ranges.Range{Start: 1000, End: 5999}

	chunks, n, err := runFetcher(t, srv, rng, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), n)
	require.Len(t, chunks, 2)
	assert.Equal(t, 4096, chunks[0].Length())
	assert.Equal(t, data[1000:6000], reassemble(t, 1000, chunks))
	assert.Equal(t, []ranges.Range{rng}, srv.requestedRanges())
}

func TestFetcherWholeBodyFallback(t *testing.T) {
	data := testData(10_000)
	srv := newRangeServer(t, data, func(s *rangeServer) { s.ignoreRange = true })
	rng := ranges.Range{Start: 3000, End: 4999}

	chunks, n, err := runFetcher(t, srv, rng, 512)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), n)
	assert.Equal(t, data[3000:5000], reassemble(t, 3000, chunks))
}

func TestFetcherBadStatus(t *testing.T) {
	srv := newRangeServer(t, testData(100), func(s *rangeServer) { s.failGets = 1 })
	chunks, n, err := runFetcher(t, srv, ranges.Range{Start: 0, End: 99}, 16)
	assert.ErrorIs(t, err, utils.ErrUnexpectedStatus)
	assert.Zero(t, n)
	assert.Empty(t, chunks)
}

func TestFetcherShortBody(t *testing.T) {
	data := testData(10_000)
	srv := newRangeServer(t, data, func(s *rangeServer) { s.truncate = 3000 })
	chunks, n, _ := runFetcher(t, srv, ranges.Range{Start: 0, End: 9999}, 1000)
	assert.LessOrEqual(t, n, int64(3000))
	got := reassemble(t, 0, chunks)
	assert.Equal(t, data[:len(got)], got)
}

func TestFetcherPaysTokens(t *testing.T) {
	data := testData(1000)
	srv := newRangeServer(t, data, nil)
	bucket := throttle.NewTokenBucket(0, 1000)
	queue := make(chan Chunk, 10)
	f := &rangeFetcher{
		url:       srv.URL,
		rng:       ranges.Range{Start: 0, End: 999},
		client:    http.DefaultClient,
		queue:     queue,
		bucket:    bucket,
		chunkSize: 256,
	}
	n, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	assert.Equal(t, int64(0), bucket.Available())
}

func TestFetcherFailsOnStalledBody(t *testing.T) {
	data := testData(1000)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data[:100])
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := utils.NewHTTPClient(utils.HTTPClientConfig{ReadIdleTimeout: 200 * time.Millisecond})
	queue := make(chan Chunk, 100)
	f := &rangeFetcher{
		url:       srv.URL,
		rng:       ranges.Range{Start: 0, End: 999},
		client:    client,
		queue:     queue,
		bucket:    throttle.NewUnlimitedBucket(),
		chunkSize: 50,
	}
	start := time.Now()
	n, err := f.run()
	assert.Error(t, err)
	assert.Equal(t, int64(100), n)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestContentRangeStart(t *testing.T) {
	start, ok := contentRangeStart("bytes 100-199/1000")
	assert.True(t, ok)
	assert.Equal(t, int64(100), start)
	_, ok = contentRangeStart("")
	assert.False(t, ok)
	_, ok = contentRangeStart("bytes */1000")
	assert.False(t, ok)
}
