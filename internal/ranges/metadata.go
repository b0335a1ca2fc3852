package ranges

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	MetadataSuffix = ".metadata"
	tempSuffix     = ".tmp"
)

// snapshot is the on-disk form of Metadata.
type snapshot struct {
	Filename  string  `yaml:"filename"`
	URL       string  `yaml:"url"`
	TotalSize int64   `yaml:"total_size"`
	Ranges    []Range `yaml:"ranges"`
}

// Metadata ties a Store to the resource it describes and to the snapshot
// file it is persisted in.
type Metadata struct {
	Filename  string
	URL       string
	TotalSize int64
	Store     *Store
	path      string
}

func MetadataPath(name string) string {
	return name + MetadataSuffix
}

func NewMetadata(path, filename, url string, totalSize int64) *Metadata {
	return &Metadata{
		Filename:  filename,
		URL:       url,
		TotalSize: totalSize,
		Store:     NewStore(),
		path:      path,
	}
}

// LoadMetadata reads a snapshot from path. A missing file is reported with
// an error satisfying errors.Is(err, os.ErrNotExist).
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("error decoding metadata %s: %w", path, err)
	}
	m := NewMetadata(path, snap.Filename, snap.URL, snap.TotalSize)
	for _, r := range snap.Ranges {
		if err := m.Store.Add(r); err != nil {
			return nil, fmt.Errorf("corrupt metadata %s: %w", path, err)
		}
	}
	return m, nil
}

func (m *Metadata) Path() string {
	return m.path
}

// Persist writes the snapshot to a temp file, syncs it and renames it over
// the previous snapshot so readers only ever see a complete file.
func (m *Metadata) Persist() error {
	data, err := yaml.Marshal(snapshot{
		Filename:  m.Filename,
		URL:       m.URL,
		TotalSize: m.TotalSize,
		Ranges:    m.Store.Ranges(),
	})
	if err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}
	tmpPath := m.path + tempSuffix
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating metadata temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("error writing metadata temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("error syncing metadata temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing metadata temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("error renaming metadata temp file: %w", err)
	}
	return nil
}

// Delete removes the snapshot and any leftover temp file.
func (m *Metadata) Delete() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(m.path + tempSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *Metadata) IsCompleted() bool {
	return m.Store.IsCompleted(m.TotalSize)
}
