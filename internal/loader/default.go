package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"salesboard/internal/core"
	"salesboard/internal/sheets"
)

// DefaultFileName is the sample dataset looked up when nothing is uploaded.
const DefaultFileName = "Sample - Superstore.xls"

// DefaultSource provides the dataset used when a session has no upload.
// The first successful load is kept for the life of the process; concurrent
// first loads share one read.
type DefaultSource struct {
	path     string
	reader   sheets.TableReader
	location string
	format   core.Format

	group singleflight.Group
	mu    sync.RWMutex
	ds    *core.Dataset
}

// NewFileSource reads the default dataset from path on disk.
func NewFileSource(path string) *DefaultSource {
	if path == "" {
		path = DefaultFileName
	}
	return &DefaultSource{path: path}
}

// NewSheetSource reads the default dataset from a spreadsheet.
func NewSheetSource(r sheets.TableReader) *DefaultSource {
	return NewTableSource(r, "google sheets", core.FormatSheets)
}

// NewTableSource reads the default dataset from r. location and format are
// reported on the loaded dataset.
func NewTableSource(r sheets.TableReader, location string, format core.Format) *DefaultSource {
	return &DefaultSource{reader: r, location: location, format: format}
}

// Location describes where the default dataset comes from.
func (s *DefaultSource) Location() string {
	if s.reader != nil {
		return s.location
	}
	return s.path
}

// Load returns the default dataset. A missing file yields a
// *core.SourceUnavailableError; other failures are returned as-is and
// retried on the next call.
func (s *DefaultSource) Load(ctx context.Context) (*core.Dataset, error) {
	if s == nil {
		return nil, &core.SourceUnavailableError{}
	}
	s.mu.RLock()
	ds := s.ds
	s.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	v, err, _ := s.group.Do("default", func() (interface{}, error) {
		s.mu.RLock()
		cached := s.ds
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		ds, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.ds = ds
		s.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Dataset), nil
}

func (s *DefaultSource) read(ctx context.Context) (*core.Dataset, error) {
	if s.reader != nil {
		tbl, err := s.reader.ReadTable(ctx)
		if err != nil {
			return nil, fmt.Errorf("read default sheet: %w", err)
		}
		if len(tbl.Values) == 0 {
			return nil, &core.SourceUnavailableError{Location: tbl.Name}
		}
		return FromRows(tbl.Name, s.format, tbl.Values)
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.SourceUnavailableError{Location: s.path}
		}
		return nil, fmt.Errorf("open default dataset: %w", err)
	}
	defer f.Close()
	return Load(s.path, f)
}
