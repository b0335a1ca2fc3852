package scheduler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	splithttp "github.com/tanq16/splitdl/internal/downloaders/http"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

// downloaderRegistry maps URL schemes to their downloader implementations
var downloaderRegistry = map[string]utils.Downloader{
	"http":  &splithttp.HTTPDownloader{},
	"https": &splithttp.HTTPDownloader{},
}

// Run drives one download through validation, size probing and the attempt
// loop, and prints the terminal success or failure line.
func Run(cfg utils.DownloadConfig) error {
	job := utils.DownloadJob{
		ID:     uuid.NewString(),
		Config: cfg,
	}
	err := runJob(&job)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSizeUnknown):
			log.Error().Str("op", "scheduler").Str("session", job.ID).Err(err).Msg("Cannot determine resource size, aborting")
		case errors.Is(err, utils.ErrAttemptsExhausted):
			log.Error().Str("op", "scheduler").Str("session", job.ID).Err(err).Msg("Partial download kept for resume")
			output.PrintWarning(fmt.Sprintf("Partial download of %s kept, run again to resume", job.FileName))
		default:
			log.Error().Str("op", "scheduler").Str("session", job.ID).Err(err).Msg("Download error")
		}
		output.PrintError("Download failed")
		return err
	}
	output.PrintSuccess("Download succeeded")
	return nil
}

func runJob(job *utils.DownloadJob) error {
	parsed, err := url.Parse(job.Config.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	downloader, exists := downloaderRegistry[parsed.Scheme]
	if !exists {
		return fmt.Errorf("unsupported scheme: %q", parsed.Scheme)
	}
	if err := downloader.ValidateJob(job); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := downloader.BuildJob(job); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	output.PrintPending(banner(job))
	reporter := output.NewPercentReporter(job.FileSize, output.PrintPercent)
	job.ProgressFunc = func(downloaded, _ int64) {
		reporter.Update(downloaded)
	}
	return downloader.Download(job)
}

func banner(job *utils.DownloadJob) string {
	text := fmt.Sprintf("Downloading %s (%s)", job.FileName, humanize.Bytes(uint64(job.FileSize)))
	if job.Config.Connections > 1 {
		text += fmt.Sprintf(" using %d connections", job.Config.Connections)
	}
	if job.Config.RateLimit > 0 {
		text += fmt.Sprintf(" limited to %s/s", humanize.Bytes(uint64(job.Config.RateLimit)))
	}
	return text + "..."
}
