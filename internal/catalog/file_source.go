package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
)

// FileSource reads race cards from <dir>/<date>.json, in the same shape the HTTP catalog serves
type FileSource struct {
	dir string
}

// NewFileSource creates a source reading from dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Name returns the name of the source
func (s *FileSource) Name() string {
	return "file"
}

// FetchRaces reads and validates the race card for date
func (s *FileSource) FetchRaces(ctx context.Context, date string) (races []models.Race, err error) {
	defer func() { metrics.RecordCatalogFetch(s.Name(), err) }()

	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(date)+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, SourceError{Source: s.Name(), Code: ErrCodeNotFound, Message: "no race card for " + date}
		}
		return nil, SourceError{Source: s.Name(), Code: ErrCodeUnavailable, Message: "failed to read race card", Err: err}
	}

	races, err = decodeRaces(data)
	if err != nil {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeInvalidResponse, Message: "malformed race card", Err: err}
	}
	return races, nil
}
