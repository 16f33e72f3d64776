// Package engine implements the concurrent paginated crawl: total discovery,
// page enumeration, bounded fetch scheduling, partition crawling and the
// driver that walks the partition list with checkpoint/resume.
package engine

import (
	"context"
	"time"

	"github.com/law-makers/dircrawl/pkg/models"
)

// Fetcher retrieves one page body. Retry and timeout policy belong to the implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser turns a page body into record fragments. Implementations must not
// panic on malformed markup.
type Parser interface {
	// ParsePage extracts every listing fragment found on the page
	ParsePage(body []byte) []models.Fragment

	// PageCount returns the highest page number shown in the pagination
	// controls, or 0 when there are none
	PageCount(body []byte) int
}

// Sink persists the final dataset
type Sink interface {
	Write(ctx context.Context, ds *models.Dataset) error
	Name() string
}

// Checkpointer persists and restores crawl progress. LoadLatest returns
// (nil, nil) when there is nothing to resume from.
type Checkpointer interface {
	LoadLatest(ctx context.Context) (*models.Checkpoint, error)
	MaybeCheckpoint(ctx context.Context, progress models.CrawlProgress) error
	CheckpointNow(ctx context.Context, progress models.CrawlProgress) error
}

// Observer receives crawl events. Implementations must be safe for concurrent use.
type Observer interface {
	PageFetched(ok bool)
	PartitionDone(failed bool)
	RecordMerged(outcome string)
	InFlight(delta int)
}

type nopObserver struct{}

func (nopObserver) PageFetched(bool)    {}
func (nopObserver) PartitionDone(bool)  {}
func (nopObserver) RecordMerged(string) {}
func (nopObserver) InFlight(int)        {}

// FetchTask is one page to fetch within a partition
type FetchTask struct {
	Page int
	URL  string
}

// PageResult is the outcome of one FetchTask. Err != nil marks a failure.
type PageResult struct {
	Page int
	URL  string
	Body []byte
	Err  error
}

// Crawler crawls a single partition
type Crawler interface {
	Crawl(ctx context.Context, part models.Partition) PartitionResult
}

// Options configures the partition crawler and the scheduler
type Options struct {
	BaseURL         string
	PageSize        int
	MaxConcurrent   int
	PauseEvery      int           // tasks issued between pauses; 0 means MaxConcurrent
	InterBatchDelay time.Duration // pause between bursts
	PartitionDelay  time.Duration // politeness pause between partitions
	ProbeUnknown    bool          // probe sequentially when the page count is unknown
	ProbeLimit      int           // extra pages probed after an empty one
	MaxPages        int           // hard ceiling for probe mode
}

// DefaultOptions returns the crawl defaults
func DefaultOptions() Options {
	return Options{
		PageSize:        20,
		MaxConcurrent:   10,
		InterBatchDelay: time.Second,
		PartitionDelay:  500 * time.Millisecond,
		ProbeLimit:      3,
		MaxPages:        500,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = d.MaxConcurrent
	}
	if o.PauseEvery <= 0 {
		o.PauseEvery = o.MaxConcurrent
	}
	if o.ProbeLimit <= 0 {
		o.ProbeLimit = d.ProbeLimit
	}
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	return o
}
