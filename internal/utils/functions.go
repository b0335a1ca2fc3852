package utils

import (
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/ranges"
)

var unsafeNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// FileNameFromURL returns the last path segment of link, sanitized for use
// as a local file name.
func FileNameFromURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return DefaultName
	}
	name := path.Base(parsed.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = unsafeNameRegex.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultName
	}
	return name
}

// ArtifactPaths returns the final, in-progress and metadata paths for name
// inside dir.
func ArtifactPaths(dir, name string) (final, temp, metadata string) {
	final = filepath.Join(dir, name)
	return final, final + TempSuffix, ranges.MetadataPath(final)
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// Clean removes the in-progress artifacts of a download.
func Clean(dir, name string) ([]string, error) {
	_, temp, metadata := ArtifactPaths(dir, name)
	var removed []string
	for _, p := range []string{temp, metadata, metadata + TempSuffix} {
		err := os.Remove(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		log.Debug().Str("op", "utils/clean").Msgf("Removed %s", p)
		removed = append(removed, p)
	}
	return removed, nil
}
