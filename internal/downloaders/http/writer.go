package splithttp

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/tanq16/splitdl/internal/ranges"
)

type syncWriterAt interface {
	io.WriterAt
	Sync() error
}

// chunkWriter is the only goroutine that touches the output file and the
// range store during an attempt. Every chunk is written, recorded and
// persisted before the next one is taken, so the snapshot on disk never
// claims bytes that are not in the file.
type chunkWriter struct {
	file       syncWriterAt
	meta       *ranges.Metadata
	queue      <-chan Chunk
	onProgress func(downloaded int64)
	logger     zerolog.Logger
}

// run drains the queue until the sentinel arrives and returns the first
// write error seen, if any. It keeps draining after an error so fetchers
// never block on a dead consumer.
func (w *chunkWriter) run() error {
	var firstErr error
	for {
		chunk := <-w.queue
		if chunk.IsSentinel() {
			w.logger.Debug().Msg("End of data reached, writer exiting")
			return firstErr
		}
		if chunk.Length() == 0 {
			continue
		}
		if err := w.apply(chunk); err != nil {
			w.logger.Error().Err(err).Int64("offset", chunk.Offset).Msg("Failed to apply chunk")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
}

func (w *chunkWriter) apply(chunk Chunk) error {
	if _, err := w.file.WriteAt(chunk.Data, chunk.Offset); err != nil {
		return fmt.Errorf("error writing chunk: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("error syncing output file: %w", err)
	}
	rng := ranges.Range{Start: chunk.Offset, End: chunk.Offset + int64(chunk.Length()) - 1}
	if err := w.meta.Store.Add(rng); err != nil {
		return err
	}
	// a failed persist only under-records progress; the bytes are still
	// tracked in memory and the next successful persist catches up
	if err := w.meta.Persist(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to persist metadata")
	}
	if w.onProgress != nil {
		w.onProgress(w.meta.Store.Downloaded())
	}
	return nil
}
