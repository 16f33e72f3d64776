// Package sink writes the final crawl dataset to files and databases.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Sink persists a whole dataset
type Sink interface {
	Write(ctx context.Context, ds *models.Dataset) error
	Name() string
}

// Format names accepted by the output configuration
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatMongo    = "mongo"
)

const stampLayout = "20060102_150405"

// stampedPath returns dir/<base>_<timestamp>.<ext>
func stampedPath(dir, base, ext string, t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, t.Format(stampLayout), ext))
}

// writeAtomic writes data to a temp file in the target directory and renames it into place
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Multi fans a dataset out to several sinks. Every sink is attempted; the
// first error is returned.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *Multi) Write(ctx context.Context, ds *models.Dataset) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Write(ctx, ds); err != nil {
			log.Error().Err(err).Str("sink", s.Name()).Msg("Sink write failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", s.Name(), err)
			}
			continue
		}
		log.Debug().Str("sink", s.Name()).Int("records", len(ds.Records)).Msg("Dataset written")
	}
	return firstErr
}

// Close closes every sink that holds resources
func (m *Multi) Close(ctx context.Context) error {
	var firstErr error
	for _, s := range m.sinks {
		c, ok := s.(interface{ Close(context.Context) error })
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
