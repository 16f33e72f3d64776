package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/dircrawl/internal/config"
	"github.com/law-makers/dircrawl/internal/runctx"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardsPage(total int, ids ...int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><head><meta name="description" content="%d врачей"></head><body>`, total)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="b-doctor-card" data-doctor-id="%d" data-doctor-name="Doctor %d">`+
			`<a class="b-doctor-card__name-link" href="/vrach/%d/">Doctor</a></div>`, id, id, id)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func idRange(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func newDirectory(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/moskva/kardiolog/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, cardsPage(25, idRange(21, 25)...))
			return
		}
		fmt.Fprint(w, cardsPage(25, idRange(1, 20)...))
	})
	mux.HandleFunc("/moskva/terapevt/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, cardsPage(3, 24, 25, 26))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Site: config.SiteConfig{BaseURL: baseURL, PageSize: 20},
		HTTP: config.HTTPConfig{Timeout: 5 * time.Second},
		Retry: config.RetryConfig{
			MaxAttempts: 1,
			Backoff:     time.Millisecond,
			MaxBackoff:  time.Millisecond,
			Multiplier:  1,
		},
		Crawl: config.CrawlConfig{MaxConcurrent: 3, ProbeLimit: 3, MaxPages: 50},
		Checkpoint: config.CheckpointConfig{
			Backend: "file",
			Dir:     filepath.Join(dir, "state"),
			Every:   1,
			Resume:  true,
		},
		Output: config.OutputConfig{
			Dir:     filepath.Join(dir, "out"),
			Formats: []string{"csv", "json", "markdown"},
		},
		Log: config.LogConfig{Level: "error"},
	}
}

var testPartitions = []models.Partition{
	{Path: "/moskva/kardiolog/", Label: "kardiolog"},
	{Path: "/moskva/terapevt/", Label: "terapevt"},
}

func TestApplication_CrawlAndResume(t *testing.T) {
	srv, hits := newDirectory(t)
	cfg := testConfig(t, srv.URL)
	ctx := runctx.WithRun(context.Background(), "test-run")

	a, err := New(ctx, cfg)
	require.NoError(t, err)

	var done []int
	ds, err := a.Crawl(ctx, testPartitions, func(index, total int, _ models.PartitionStats) {
		done = append(done, index)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	assert.Equal(t, []int{0, 1}, done)
	assert.Equal(t, "test-run", ds.RunID)
	assert.False(t, ds.Interrupted)
	assert.Len(t, ds.Records, 26)
	require.Len(t, ds.Stats, 2)
	assert.Equal(t, 25, ds.Stats[0].New)
	assert.Equal(t, 3, ds.Stats[1].Found)
	assert.Equal(t, 1, ds.Stats[1].New)
	assert.Equal(t, int32(3), hits.Load())

	for _, pattern := range []string{"records_*.csv", "stats_*.csv", "records_*.json", "report_*.md"} {
		matches, err := filepath.Glob(filepath.Join(cfg.Output.Dir, pattern))
		require.NoError(t, err)
		assert.Len(t, matches, 1, pattern)
	}
	assert.FileExists(t, filepath.Join(cfg.Checkpoint.Dir, "checkpoint.json"))

	// every partition is checkpointed as complete, so a rerun fetches nothing
	b, err := New(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)

	ds, err = b.Crawl(ctx, testPartitions, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 26)
	assert.Len(t, ds.Stats, 2)
	assert.Equal(t, int32(3), hits.Load())
}

func TestApplication_NoResumeStartsFresh(t *testing.T) {
	srv, hits := newDirectory(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = a.Crawl(ctx, testPartitions, nil)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	cfg.Checkpoint.Resume = false
	b, err := New(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)

	ds, err := b.Crawl(ctx, testPartitions, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 26)
	assert.Equal(t, int32(6), hits.Load())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig(t, "https://dir.example")
	cfg.HTTP.Proxies = []string{"::not a proxy"}
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "https://dir.example")
	cfg.Checkpoint.Backend = "redis"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := testConfig(t, "https://dir.example")
	cfg.Crawl.ProbeUnknown = true
	cfg.Crawl.PartitionDelay = 250 * time.Millisecond
	a := &Application{Config: cfg}

	opts := a.Options()
	assert.Equal(t, "https://dir.example", opts.BaseURL)
	assert.Equal(t, 3, opts.MaxConcurrent)
	assert.True(t, opts.ProbeUnknown)
	assert.Equal(t, 250*time.Millisecond, opts.PartitionDelay)
}
