package splithttp

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/ranges"
	"github.com/tanq16/splitdl/internal/throttle"
	"github.com/tanq16/splitdl/internal/utils"
)

// Download runs attempts until every byte of the resource is on disk or the
// attempt budget is spent. Only still-missing ranges are fetched on each
// attempt. On failure the partial file and its metadata are left in place
// so a later run can resume.
func (d *HTTPDownloader) Download(job *utils.DownloadJob) error {
	cfg := job.Config.WithDefaults()
	logger := log.With().Str("op", "http/download").Str("session", job.ID).Logger()
	client := utils.NewHTTPClient(cfg.HTTPClientConfig)

	meta, fresh, err := loadOrInitMetadata(job, logger)
	if err != nil {
		return err
	}
	flag := os.O_RDWR | os.O_CREATE
	if fresh {
		flag |= os.O_TRUNC
	}
	file, err := os.OpenFile(job.TempPath, flag, 0644)
	if err != nil {
		return fmt.Errorf("error opening output file: %v", err)
	}
	if fresh {
		if err := meta.Persist(); err != nil {
			logger.Error().Err(err).Msg("Failed to persist initial metadata")
		}
	} else {
		logger.Info().Msgf("Resuming %s with %s of %s already on disk", job.FileName,
			humanize.Bytes(uint64(meta.Store.Downloaded())), humanize.Bytes(uint64(job.FileSize)))
	}
	if job.ProgressFunc != nil {
		job.ProgressFunc(meta.Store.Downloaded(), job.FileSize)
	}

	startTime := time.Now()
	startBytes := meta.Store.Downloaded()
	attempts := 0
	for !meta.IsCompleted() && attempts < cfg.MaxAttempts {
		if attempts > 0 {
			logger.Warn().Msgf("Attempt %d/%d incomplete, retrying in %s", attempts, cfg.MaxAttempts, cfg.RetryDelay)
			time.Sleep(cfg.RetryDelay)
		}
		attempts++
		runAttempt(job.Config.URL, cfg, client, meta, file, job.ProgressFunc, logger.With().Int("attempt", attempts).Logger())
	}
	if err := file.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close output file")
	}

	if !meta.IsCompleted() {
		return fmt.Errorf("%w: %d attempts, %d of %d bytes on disk", utils.ErrAttemptsExhausted,
			attempts, meta.Store.Downloaded(), job.FileSize)
	}
	if err := os.Rename(job.TempPath, job.OutputPath); err != nil {
		return fmt.Errorf("error renaming (finalizing) output file: %v", err)
	}
	if err := meta.Delete(); err != nil {
		logger.Error().Err(err).Msg("Failed to delete metadata")
	}
	elapsed := time.Since(startTime).Seconds()
	logger.Info().Msgf("Download of %s completed in %d attempt(s) at %s", job.OutputPath, attempts,
		output.FormatSpeed(meta.Store.Downloaded()-startBytes, elapsed))
	return nil
}

// loadOrInitMetadata resumes from the persisted snapshot when it matches
// the probed resource, and starts fresh otherwise.
func loadOrInitMetadata(job *utils.DownloadJob, logger zerolog.Logger) (*ranges.Metadata, bool, error) {
	fresh := func() (*ranges.Metadata, bool, error) {
		return ranges.NewMetadata(job.MetadataPath, job.FileName, job.Config.URL, job.FileSize), true, nil
	}
	meta, err := ranges.LoadMetadata(job.MetadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return fresh()
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Discarding unreadable metadata")
		return fresh()
	}
	if meta.TotalSize != job.FileSize {
		logger.Warn().Msgf("Resource size changed (%d -> %d), restarting download", meta.TotalSize, job.FileSize)
		return fresh()
	}
	if _, err := os.Stat(job.TempPath); err != nil {
		logger.Warn().Msgf("Metadata found but %s is missing, restarting download", job.TempPath)
		return fresh()
	}
	if meta.URL != job.Config.URL {
		logger.Warn().Msgf("Resuming %s from a different URL (was %s)", job.FileName, meta.URL)
		meta.URL = job.Config.URL
	}
	return meta, false, nil
}

// newBucket sizes the bucket so a single increment always fits.
func newBucket(cfg utils.DownloadConfig) (*throttle.TokenBucket, int) {
	if cfg.RateLimit <= 0 {
		return throttle.NewUnlimitedBucket(), cfg.ChunkSize
	}
	chunkSize := int(min(int64(cfg.ChunkSize), cfg.RateLimit))
	capacity := 2 * cfg.RateLimit
	if cfg.HardLimit {
		capacity = cfg.RateLimit
	}
	return throttle.NewTokenBucket(capacity, 0), chunkSize
}

// runAttempt fetches every currently missing range once. It returns after
// all fetchers have finished and the writer has applied every chunk.
func runAttempt(url string, cfg utils.DownloadConfig, client utils.HTTPDoer, meta *ranges.Metadata,
	file syncWriterAt, progress func(downloaded, total int64), logger zerolog.Logger) {
	missing := meta.Store.Missing(meta.TotalSize)
	parts := splitRanges(missing, cfg.Connections, cfg.MinSplitSize)
	logger.Info().Msgf("Fetching %d missing range(s) as %d part(s)", len(missing), len(parts))

	queue := make(chan Chunk, cfg.QueueSize)
	bucket, chunkSize := newBucket(cfg)
	replenisher := throttle.NewReplenisher(bucket, cfg.RateLimit, cfg.ReplenishInterval, cfg.HardLimit)
	writer := &chunkWriter{
		file:   file,
		meta:   meta,
		queue:  queue,
		logger: logger,
	}
	if progress != nil {
		writer.onProgress = func(downloaded int64) { progress(downloaded, meta.TotalSize) }
	}

	var aux sync.WaitGroup
	aux.Add(2)
	go func() {
		defer aux.Done()
		replenisher.Run()
	}()
	go func() {
		defer aux.Done()
		if err := writer.run(); err != nil {
			logger.Error().Err(err).Msg("Writer finished with errors")
		}
	}()

	var pool errgroup.Group
	pool.SetLimit(cfg.Connections)
	for _, part := range parts {
		fetcher := &rangeFetcher{
			url:       url,
			rng:       part,
			client:    client,
			queue:     queue,
			bucket:    bucket,
			chunkSize: chunkSize,
		}
		pool.Go(func() error {
			n, err := fetcher.run()
			if err != nil {
				logger.Warn().Err(err).Str("range", part.String()).Msgf("Fetcher stopped after %d bytes", n)
				return nil
			}
			logger.Debug().Str("range", part.String()).Msgf("Fetcher finished with %d bytes", n)
			return nil
		})
	}
	pool.Wait()

	queue <- sentinel
	bucket.Terminate()
	aux.Wait()
}
