package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/dircrawl/pkg/models"
)

// listingPage renders a minimal directory page. total < 0 omits the count.
func listingPage(total, pages int, ids ...string) []byte {
	var b strings.Builder
	b.WriteString("<html><head>")
	if total >= 0 {
		fmt.Fprintf(&b, `<meta name="description" content="%d врачей в Москве">`, total)
	}
	b.WriteString("</head><body>")
	if pages > 0 {
		fmt.Fprintf(&b, `<nav data-pages="%d"></nav>`, pages)
	}
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="card" data-id="%s"></div>`, id)
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

var (
	stubIDRe    = regexp.MustCompile(`data-id="([^"]+)"`)
	stubPagesRe = regexp.MustCompile(`data-pages="(\d+)"`)
)

// stubParser understands pages produced by listingPage
type stubParser struct{}

func (stubParser) ParsePage(body []byte) []models.Fragment {
	var out []models.Fragment
	for _, m := range stubIDRe.FindAllSubmatch(body, -1) {
		out = append(out, models.Fragment{ID: string(m[1]), DisplayName: "name-" + string(m[1])})
	}
	return out
}

func (stubParser) PageCount(body []byte) int {
	m := stubPagesRe.FindSubmatch(body)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(string(m[1]))
	return n
}

// stubFetcher serves canned bodies by URL and records concurrency
type stubFetcher struct {
	mu       sync.Mutex
	pages    map[string][]byte
	fail     map[string]bool
	delay    time.Duration
	calls    []string
	inFlight int
	peak     int
	onFetch  func(url string)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string][]byte),
		fail:  make(map[string]bool),
	}
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	body, ok := f.pages[url]
	failed := f.fail[url]
	delay := f.delay
	hook := f.onFetch
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failed {
		return nil, errors.New("HTTP 503: Service Unavailable")
	}
	if !ok {
		return nil, errors.New("HTTP 404: Not Found")
	}
	return body, nil
}

func (f *stubFetcher) set(url string, body []byte) {
	f.mu.Lock()
	f.pages[url] = body
	f.mu.Unlock()
}

func (f *stubFetcher) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func (f *stubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// memCheckpointer keeps checkpoints in memory with a cadence of every
type memCheckpointer struct {
	mu       sync.Mutex
	every    int
	latest   *models.Checkpoint
	loadErr  error
	writeErr error
	writes   []models.CrawlProgress
	snap     func() []models.Record
}

func (m *memCheckpointer) LoadLatest(context.Context) (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.latest, nil
}

func (m *memCheckpointer) MaybeCheckpoint(ctx context.Context, p models.CrawlProgress) error {
	if m.every <= 0 || (p.PartitionIndex+1)%m.every != 0 {
		return nil
	}
	return m.CheckpointNow(ctx, p)
}

func (m *memCheckpointer) CheckpointNow(_ context.Context, p models.CrawlProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, p)
	if m.writeErr != nil {
		return m.writeErr
	}
	var recs []models.Record
	if m.snap != nil {
		recs = m.snap()
	}
	m.latest = &models.Checkpoint{Version: 1, Records: recs, Progress: p}
	return nil
}

// memSink captures the emitted dataset
type memSink struct {
	mu  sync.Mutex
	ds  *models.Dataset
	err error
}

func (s *memSink) Name() string { return "memory" }

func (s *memSink) Write(_ context.Context, ds *models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
	return s.err
}

func testOptions(base string) Options {
	return Options{
		BaseURL:       base,
		PageSize:      20,
		MaxConcurrent: 3,
		ProbeLimit:    3,
		MaxPages:      50,
	}
}
