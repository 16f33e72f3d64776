// Package checkpoint persists crawl progress so an interrupted run can resume.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/dircrawl/internal/runctx"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// FormatVersion is the checkpoint document version written by this build
const FormatVersion = 1

var (
	// ErrNoCheckpoint is returned by a Storage that holds nothing yet
	ErrNoCheckpoint = errors.New("no checkpoint found")

	// ErrCheckpointCorrupt marks a checkpoint that must not be resumed from
	ErrCheckpointCorrupt = errors.New("checkpoint is corrupt")
)

// Storage is a durable slot holding the latest checkpoint document.
// Write must replace the previous document atomically.
type Storage interface {
	Write(ctx context.Context, data []byte) error
	ReadLatest(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
	Close() error
}

// Snapshotter provides a consistent copy of the accumulated records
type Snapshotter interface {
	Snapshot() []models.Record
}

// Manager decides when to checkpoint and serializes snapshots to Storage
type Manager struct {
	storage Storage
	records Snapshotter
	every   int
	onWrite func(ok bool)
}

// Option configures a Manager
type Option func(*Manager)

// WithWriteHook registers a callback invoked after every write attempt
func WithWriteHook(fn func(ok bool)) Option {
	return func(m *Manager) {
		m.onWrite = fn
	}
}

// NewManager creates a Manager writing every `every` completed partitions.
// every <= 0 disables periodic checkpoints; CheckpointNow still writes.
func NewManager(storage Storage, records Snapshotter, every int, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		records: records,
		every:   every,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaybeCheckpoint writes when the number of completed partitions is a multiple of the cadence
func (m *Manager) MaybeCheckpoint(ctx context.Context, progress models.CrawlProgress) error {
	if m.every <= 0 || progress.PartitionIndex < 0 {
		return nil
	}
	if (progress.PartitionIndex+1)%m.every != 0 {
		return nil
	}
	return m.CheckpointNow(ctx, progress)
}

// CheckpointNow snapshots the records and writes a checkpoint unconditionally
func (m *Manager) CheckpointNow(ctx context.Context, progress models.CrawlProgress) error {
	records := m.records.Snapshot()
	progress.RecordCount = len(records)

	sum, err := checksum(records)
	if err != nil {
		m.report(false)
		return fmt.Errorf("failed to checksum records: %w", err)
	}

	cp := models.Checkpoint{
		Version:   FormatVersion,
		RunID:     runctx.FromContext(ctx).RunID,
		CreatedAt: time.Now().UTC(),
		Checksum:  sum,
		Records:   records,
		Progress:  progress,
	}

	data, err := json.Marshal(cp)
	if err != nil {
		m.report(false)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := m.storage.Write(ctx, data); err != nil {
		m.report(false)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	m.report(true)

	log.Info().
		Int("partition_index", progress.PartitionIndex).
		Int("records", len(records)).
		Int("bytes", len(data)).
		Msg("Checkpoint saved")
	return nil
}

// LoadLatest returns the stored checkpoint, or nil when there is none.
// A checkpoint that fails to decode or verify yields ErrCheckpointCorrupt.
func (m *Manager) LoadLatest(ctx context.Context) (*models.Checkpoint, error) {
	data, err := m.storage.ReadLatest(ctx)
	if errors.Is(err, ErrNoCheckpoint) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return Decode(data)
}

// Decode parses and verifies a checkpoint document
func Decode(data []byte) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointCorrupt, err)
	}
	if cp.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCheckpointCorrupt, cp.Version)
	}
	if cp.Progress.PartitionIndex < -1 {
		return nil, fmt.Errorf("%w: invalid partition index %d", ErrCheckpointCorrupt, cp.Progress.PartitionIndex)
	}

	sum, err := checksum(cp.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointCorrupt, err)
	}
	if sum != cp.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCheckpointCorrupt)
	}
	return &cp, nil
}

// Clear removes the stored checkpoint
func (m *Manager) Clear(ctx context.Context) error {
	return m.storage.Clear(ctx)
}

func (m *Manager) report(ok bool) {
	if m.onWrite != nil {
		m.onWrite(ok)
	}
}

func checksum(records []models.Record) (string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:]), nil
}
