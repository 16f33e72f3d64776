package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	urlutil "github.com/law-makers/dircrawl/internal/utils/url"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// PartitionResult is everything collected from one partition
type PartitionResult struct {
	Partition   models.Partition
	Fragments   []models.Fragment // page 1 first, then later pages in page order
	Total       int
	TotalKnown  bool
	PagesTotal  int
	PagesFailed int
	Err         error // partition-level failure; fragments are empty when set
}

// PartitionCrawler crawls one partition end to end
type PartitionCrawler struct {
	fetcher   Fetcher
	parser    Parser
	resolver  *TotalResolver
	scheduler *Scheduler
	opts      Options
	obs       Observer
}

// NewPartitionCrawler wires a crawler. A nil resolver uses the default noun list.
func NewPartitionCrawler(f Fetcher, p Parser, r *TotalResolver, opts Options, obs Observer) *PartitionCrawler {
	opts = opts.withDefaults()
	if r == nil {
		r = NewTotalResolver(nil, 0)
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &PartitionCrawler{
		fetcher:   f,
		parser:    p,
		resolver:  r,
		scheduler: NewScheduler(f, opts.MaxConcurrent, opts.PauseEvery, opts.InterBatchDelay, obs),
		opts:      opts,
		obs:       obs,
	}
}

// Crawl fetches page 1, works out how many pages follow and fetches them
// through the scheduler. Failures never escape as errors: a failed first
// page is reported in Err, failed later pages are counted and dropped.
func (c *PartitionCrawler) Crawl(ctx context.Context, part models.Partition) PartitionResult {
	res := PartitionResult{Partition: part}
	start := time.Now()

	firstURL := urlutil.PageURL(c.opts.BaseURL, part.Path, 1)
	body, err := c.fetcher.Fetch(ctx, firstURL)
	c.obs.PageFetched(err == nil)
	res.PagesTotal = 1
	if err != nil {
		res.PagesFailed = 1
		res.Err = NewCrawlError(ErrCodeFetch, "first page fetch failed", err).
			WithDetail("partition", part.Path).
			WithDetail("url", firstURL)
		log.Warn().
			Err(err).
			Str("partition", part.Label).
			Str("url", firstURL).
			Msg("Partition failed on first page")
		return res
	}

	res.Fragments = append(res.Fragments, c.parse(part, 1, body)...)
	res.Total, res.TotalKnown = c.resolver.Resolve(body)
	pageCount := c.parser.PageCount(body)

	log.Debug().
		Str("partition", part.Label).
		Int("total", res.Total).
		Bool("total_known", res.TotalKnown).
		Int("page_count", pageCount).
		Msg("Resolved partition size")

	if !res.TotalKnown && pageCount <= 1 && c.opts.ProbeUnknown {
		c.probe(ctx, part, &res)
	} else {
		pages := EnumeratePages(res.Total, res.TotalKnown, c.opts.PageSize, pageCount)
		c.fetchPages(ctx, part, pages, &res)
	}

	log.Info().
		Str("partition", part.Label).
		Int("pages", res.PagesTotal).
		Int("pages_failed", res.PagesFailed).
		Int("fragments", len(res.Fragments)).
		Dur("elapsed", time.Since(start)).
		Msg("Partition crawled")

	return res
}

func (c *PartitionCrawler) fetchPages(ctx context.Context, part models.Partition, pages []int, res *PartitionResult) {
	if len(pages) == 0 {
		return
	}

	tasks := make([]FetchTask, len(pages))
	for i, p := range pages {
		tasks[i] = FetchTask{Page: p, URL: urlutil.PageURL(c.opts.BaseURL, part.Path, p)}
	}
	res.PagesTotal += len(tasks)

	for _, pr := range c.scheduler.RunBatched(ctx, tasks) {
		if pr.Err != nil {
			res.PagesFailed++
			if !errors.Is(pr.Err, context.Canceled) {
				log.Debug().Err(pr.Err).Str("partition", part.Label).Int("page", pr.Page).Msg("Dropping failed page")
			}
			continue
		}
		res.Fragments = append(res.Fragments, c.parse(part, pr.Page, pr.Body)...)
	}

	if res.PagesFailed > 0 {
		log.Warn().
			Str("partition", part.Label).
			Int("failed", res.PagesFailed).
			Int("total", res.PagesTotal).
			Msg("Some pages failed")
	}
}

// probe walks pages sequentially when nothing says how many there are.
// After an empty page up to ProbeLimit further pages are tried; the
// partition ends when all of them are empty too.
func (c *PartitionCrawler) probe(ctx context.Context, part models.Partition, res *PartitionResult) {
	page := 2
	for page <= c.opts.MaxPages {
		if ctx.Err() != nil {
			return
		}
		frags, ok := c.fetchOne(ctx, part, page, res)
		if len(frags) > 0 {
			res.Fragments = append(res.Fragments, frags...)
			page++
			c.pause(ctx)
			continue
		}

		log.Debug().Str("partition", part.Label).Int("page", page).Bool("fetched", ok).Msg("Empty page, probing ahead")

		resumed := false
		for i := 1; i <= c.opts.ProbeLimit && page+i <= c.opts.MaxPages; i++ {
			c.pause(ctx)
			if ctx.Err() != nil {
				return
			}
			probeFrags, _ := c.fetchOne(ctx, part, page+i, res)
			if len(probeFrags) > 0 {
				res.Fragments = append(res.Fragments, probeFrags...)
				page += i + 1
				resumed = true
				break
			}
		}
		if !resumed {
			log.Debug().Str("partition", part.Label).Int("last_page", page-1).Msg("Partition exhausted")
			return
		}
	}
	log.Warn().Str("partition", part.Label).Int("max_pages", c.opts.MaxPages).Msg("Page ceiling reached")
}

// fetchOne fetches and parses a single page. A failed fetch counts as empty.
func (c *PartitionCrawler) fetchOne(ctx context.Context, part models.Partition, page int, res *PartitionResult) ([]models.Fragment, bool) {
	url := urlutil.PageURL(c.opts.BaseURL, part.Path, page)
	res.PagesTotal++
	body, err := c.fetcher.Fetch(ctx, url)
	c.obs.PageFetched(err == nil)
	if err != nil {
		res.PagesFailed++
		log.Debug().Err(err).Str("url", url).Msg("Probe fetch failed")
		return nil, false
	}
	return c.parse(part, page, body), true
}

func (c *PartitionCrawler) pause(ctx context.Context) {
	if c.opts.InterBatchDelay <= 0 {
		return
	}
	// the burst delay is spread over a batch in sequential mode
	sleepCtx(ctx, c.opts.InterBatchDelay/time.Duration(c.opts.MaxConcurrent))
}

func (c *PartitionCrawler) parse(part models.Partition, page int, body []byte) (frags []models.Fragment) {
	defer func() {
		if r := recover(); r != nil {
			err := NewCrawlError(ErrCodeParse, "parser panicked", fmt.Errorf("%v", r))
			log.Error().Err(err).Str("partition", part.Label).Int("page", page).Msg("Treating page as empty")
			frags = nil
		}
	}()
	frags = c.parser.ParsePage(body)
	if len(frags) == 0 {
		log.Debug().Str("partition", part.Label).Int("page", page).Msg("No listings on page")
	}
	return frags
}
