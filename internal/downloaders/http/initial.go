package splithttp

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

type HTTPDownloader struct{}

func (d *HTTPDownloader) ValidateJob(job *utils.DownloadJob) error {
	parsedURL, err := url.Parse(job.Config.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	return nil
}

// BuildJob resolves the total size and the local artifact paths. A size
// probe that yields no usable length is fatal.
func (d *HTTPDownloader) BuildJob(job *utils.DownloadJob) error {
	job.Config = job.Config.WithDefaults()
	job.Config.HTTPClientConfig.HighThreadMode = job.Config.Connections > 5
	client := utils.NewHTTPClient(job.Config.HTTPClientConfig)

	size, err := probeSize(job.Config.URL, client)
	if err != nil {
		return err
	}
	job.FileSize = size
	if job.FileName == "" {
		job.FileName = utils.FileNameFromURL(job.Config.URL)
	}
	job.OutputPath, job.TempPath, job.MetadataPath = utils.ArtifactPaths(job.Config.OutputDir, job.FileName)

	if _, err := os.Stat(job.OutputPath); err == nil {
		return fmt.Errorf("%w: %s", utils.ErrFileExists, job.OutputPath)
	}
	log.Debug().Str("op", "http/initial").Str("session", job.ID).Msgf("Resolved %s to %d bytes", job.Config.URL, size)
	return nil
}

func probeSize(link string, client utils.HTTPDoer) (int64, error) {
	req, err := http.NewRequest("HEAD", link, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrSizeUnknown, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrSizeUnknown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: server returned %d", utils.ErrSizeUnknown, resp.StatusCode)
	}
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return 0, fmt.Errorf("%w: %v", utils.ErrSizeUnknown, errors.New("server didn't provide Content-Length header"))
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrSizeUnknown, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: invalid file size %d reported by server", utils.ErrSizeUnknown, size)
	}
	return size, nil
}
