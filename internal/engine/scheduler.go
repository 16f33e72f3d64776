package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Scheduler runs page fetches under a global concurrency cap with a pause
// between bursts. It never retries; that is the Fetcher's job.
type Scheduler struct {
	fetcher       Fetcher
	maxConcurrent int
	pauseEvery    int
	delay         time.Duration
	obs           Observer
}

// NewScheduler creates a Scheduler. pauseEvery <= 0 pauses at batch
// boundaries of maxConcurrent tasks.
func NewScheduler(f Fetcher, maxConcurrent, pauseEvery int, delay time.Duration, obs Observer) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if pauseEvery <= 0 {
		pauseEvery = maxConcurrent
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Scheduler{
		fetcher:       f,
		maxConcurrent: maxConcurrent,
		pauseEvery:    pauseEvery,
		delay:         delay,
		obs:           obs,
	}
}

// RunBatched fetches every task and returns one result per task, in input order.
//
// A failed task only fails its own result. Once ctx is done no further task
// is issued; tasks already in flight run to completion and the remaining
// ones are reported as failures wrapping ctx.Err().
func (s *Scheduler) RunBatched(ctx context.Context, tasks []FetchTask) []PageResult {
	results := make([]PageResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	// in-flight fetches outlive cancellation so their results are not lost
	fetchCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)

	issued := 0
	for i, task := range tasks {
		if i > 0 && i%s.pauseEvery == 0 && s.delay > 0 {
			log.Debug().Int("issued", i).Dur("delay", s.delay).Msg("Pausing between batches")
			if !sleepCtx(ctx, s.delay) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			s.obs.InFlight(1)
			defer s.obs.InFlight(-1)

			body, err := s.fetcher.Fetch(fetchCtx, task.URL)
			res := PageResult{Page: task.Page, URL: task.URL, Body: body}
			if err != nil {
				res.Body = nil
				res.Err = NewCrawlError(ErrCodeFetch, "page fetch failed", err).
					WithDetail("page", task.Page).
					WithDetail("url", task.URL)
			}
			s.obs.PageFetched(err == nil)
			results[i] = res
			return nil
		})
		issued++
	}

	_ = g.Wait()

	if issued < len(tasks) {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		for i := issued; i < len(tasks); i++ {
			results[i] = PageResult{
				Page: tasks[i].Page,
				URL:  tasks[i].URL,
				Err:  NewCrawlError(ErrCodeFetch, "page not issued", cause),
			}
		}
		log.Warn().
			Int("issued", issued).
			Int("skipped", len(tasks)-issued).
			Msg("Crawl cancelled, remaining pages not fetched")
	}

	return results
}

// sleepCtx waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
