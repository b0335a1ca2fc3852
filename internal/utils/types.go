package utils

import (
	"net/http"
	"time"
)

type Downloader interface {
	ValidateJob(job *DownloadJob) error
	BuildJob(job *DownloadJob) error
	Download(job *DownloadJob) error
}

// DownloadConfig is built once by the CLI and passed by value to every
// component of a download.
type DownloadConfig struct {
	URL               string
	OutputDir         string
	Connections       int
	RateLimit         int64 // bytes per second, 0 means unlimited
	HardLimit         bool  // reset the bucket each interval instead of topping it up
	MaxAttempts       int
	RetryDelay        time.Duration
	ChunkSize         int
	MinSplitSize      int64
	QueueSize         int
	ReplenishInterval time.Duration
	HTTPClientConfig  HTTPClientConfig
}

type DownloadJob struct {
	ID           string
	Config       DownloadConfig
	FileName     string
	OutputPath   string
	TempPath     string
	MetadataPath string
	FileSize     int64
	ProgressFunc func(downloaded, total int64)
}

// WithDefaults fills zero-valued tunables.
func (c DownloadConfig) WithDefaults() DownloadConfig {
	if c.Connections <= 0 {
		c.Connections = DefaultConnections
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MinSplitSize <= 0 {
		c.MinSplitSize = DefaultMinSplitSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ReplenishInterval <= 0 {
		c.ReplenishInterval = time.Second
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	return c
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
