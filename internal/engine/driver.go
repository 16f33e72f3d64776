package engine

import (
	"context"
	"time"

	"github.com/law-makers/dircrawl/internal/runctx"
	"github.com/law-makers/dircrawl/internal/store"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// PartitionDoneFunc is called after each partition with its 0-based index
type PartitionDoneFunc func(index, total int, stats models.PartitionStats)

// Driver walks the partition list, merges every partition into the store,
// checkpoints at the configured cadence and hands the dataset to the sink.
type Driver struct {
	crawler        Crawler
	store          *store.RecordStore
	checkpoints    Checkpointer
	sink           Sink
	partitionDelay time.Duration
	obs            Observer
	onPartition    PartitionDoneFunc
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithPartitionDelay sets the politeness pause between partitions
func WithPartitionDelay(d time.Duration) DriverOption {
	return func(dr *Driver) {
		dr.partitionDelay = d
	}
}

// WithObserver sets the event observer
func WithObserver(obs Observer) DriverOption {
	return func(dr *Driver) {
		if obs != nil {
			dr.obs = obs
		}
	}
}

// WithPartitionCallback registers a progress callback
func WithPartitionCallback(fn PartitionDoneFunc) DriverOption {
	return func(dr *Driver) {
		dr.onPartition = fn
	}
}

// NewDriver creates a Driver. A nil checkpointer disables checkpointing and
// a nil sink skips emission.
func NewDriver(c Crawler, st *store.RecordStore, cp Checkpointer, sink Sink, opts ...DriverOption) *Driver {
	d := &Driver{
		crawler:     c,
		store:       st,
		checkpoints: cp,
		sink:        sink,
		obs:         nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run crawls partitions in order, resuming after the last completed one
// recorded in the latest checkpoint.
//
// Only a sink failure is returned as an error. When ctx is cancelled the
// partition in flight is drained and merged, a final checkpoint is written
// and the partial dataset is still emitted with Interrupted set.
func (d *Driver) Run(ctx context.Context, partitions []models.Partition) (*models.Dataset, error) {
	if len(partitions) == 0 {
		return nil, ErrNoPartitions
	}

	runID := runctx.FromContext(ctx).RunID
	started := time.Now()

	lastDone, stats := d.resume(ctx, partitions)

	// set only when partitions are left uncrawled
	interrupted := false
	for i := lastDone + 1; i < len(partitions); i++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		part := partitions[i]
		tag := partitionTag(part)

		res := d.crawler.Crawl(ctx, part)
		ps := d.merge(tag, res)
		d.obs.PartitionDone(res.Err != nil)

		if ctx.Err() != nil {
			// fragments are kept, but the partition may be incomplete and is crawled again on resume
			log.Warn().Str("partition", tag).Int("index", i).Msg("Partition interrupted")
			interrupted = true
			break
		}

		stats = append(stats, ps)
		lastDone = i

		log.Info().
			Str("partition", tag).
			Int("index", i+1).
			Int("of", len(partitions)).
			Int("found", ps.Found).
			Int("new", ps.New).
			Int("records", d.store.Len()).
			Msg("Partition done")

		if d.onPartition != nil {
			d.onPartition(i, len(partitions), ps)
		}

		if d.checkpoints != nil {
			if err := d.checkpoints.MaybeCheckpoint(ctx, d.progress(lastDone, stats)); err != nil {
				log.Error().Err(NewCrawlError(ErrCodeCheckpointWrite, "periodic checkpoint failed", err)).Msg("Continuing without checkpoint")
			}
		}

		if i < len(partitions)-1 {
			sleepCtx(ctx, d.partitionDelay)
		}
	}

	// the final checkpoint and emission must happen even after cancellation
	finalCtx := context.WithoutCancel(ctx)

	if d.checkpoints != nil {
		if err := d.checkpoints.CheckpointNow(finalCtx, d.progress(lastDone, stats)); err != nil {
			log.Error().Err(NewCrawlError(ErrCodeCheckpointWrite, "final checkpoint failed", err)).Msg("Continuing to sink")
		}
	}

	ds := &models.Dataset{
		RunID:       runID,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Interrupted: interrupted,
		Records:     d.store.Snapshot(),
		Stats:       append([]models.PartitionStats(nil), stats...),
	}

	if interrupted {
		log.Warn().
			Int("completed", lastDone+1).
			Int("partitions", len(partitions)).
			Int("records", len(ds.Records)).
			Msg("Crawl interrupted, emitting partial dataset")
	}

	if d.sink != nil {
		if err := d.sink.Write(finalCtx, ds); err != nil {
			return ds, NewCrawlError(ErrCodeSink, "failed to write dataset to "+d.sink.Name(), err)
		}
	}

	return ds, nil
}

// resume restores the store from the latest checkpoint and returns the index
// of the last completed partition (-1 for a fresh start) with its stats.
func (d *Driver) resume(ctx context.Context, partitions []models.Partition) (int, []models.PartitionStats) {
	if d.checkpoints == nil {
		return -1, nil
	}

	cp, err := d.checkpoints.LoadLatest(ctx)
	if err != nil {
		log.Error().
			Err(NewCrawlError(ErrCodeCheckpointCorrupt, "cannot resume from checkpoint", err)).
			Msg("IGNORING CHECKPOINT AND STARTING FROM SCRATCH")
		return -1, nil
	}
	if cp == nil {
		return -1, nil
	}

	idx := cp.Progress.PartitionIndex
	if idx >= len(partitions) {
		log.Warn().
			Int("checkpoint_index", idx).
			Int("partitions", len(partitions)).
			Msg("Checkpoint is ahead of the partition list, clamping")
		idx = len(partitions) - 1
	}
	if idx >= 0 && len(cp.Progress.Stats) > 0 {
		last := cp.Progress.Stats[len(cp.Progress.Stats)-1].Partition
		if want := partitionTag(partitions[idx]); last != want {
			log.Warn().
				Str("checkpoint_partition", last).
				Str("list_partition", want).
				Msg("Partition list differs from the checkpointed run")
		}
	}

	d.store.Restore(cp.Records)
	log.Info().
		Str("checkpoint_run", cp.RunID).
		Int("records", d.store.Len()).
		Int("resume_from", idx+1).
		Msg("Resuming from checkpoint")

	return idx, append([]models.PartitionStats(nil), cp.Progress.Stats...)
}

func (d *Driver) merge(tag string, res PartitionResult) models.PartitionStats {
	ps := models.PartitionStats{
		Partition:   tag,
		Found:       len(res.Fragments),
		PagesTotal:  res.PagesTotal,
		PagesFailed: res.PagesFailed,
		Failed:      res.Err != nil,
	}
	for _, f := range res.Fragments {
		outcome := d.store.Merge(f, tag)
		if outcome == store.Inserted {
			ps.New++
		}
		d.obs.RecordMerged(outcome.String())
	}
	return ps
}

func (d *Driver) progress(lastDone int, stats []models.PartitionStats) models.CrawlProgress {
	return models.CrawlProgress{
		PartitionIndex: lastDone,
		RecordCount:    d.store.Len(),
		Stats:          append([]models.PartitionStats(nil), stats...),
	}
}

func partitionTag(p models.Partition) string {
	if p.Label != "" {
		return p.Label
	}
	return p.Path
}
