package utils

import (
	"errors"
	"time"
)

const (
	DefaultConnections  = 1
	DefaultMaxAttempts  = 5
	DefaultRetryDelay   = 2 * time.Second
	DefaultChunkSize    = 4096
	DefaultMinSplitSize = 16 * DefaultChunkSize // 64KB per worker at least
	DefaultQueueSize    = 64
	DefaultBufferSize   = 1024 * 1024
)

const (
	TempSuffix    = ".tmp"
	DefaultName   = "download"
	ToolUserAgent = "splitdl/1.0"
)

var (
	ErrSizeUnknown       = errors.New("could not determine resource size")
	ErrAttemptsExhausted = errors.New("download attempts exhausted")
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrFileExists        = errors.New("output file already exists")
)
