package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/dircrawl/internal/engine"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "crawl", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterFlags(cmd)
	RegisterCrawlFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Site.BaseURL)
	assert.Equal(t, DefaultPageSize, cfg.Site.PageSize)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTP.Timeout)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Crawl.MaxConcurrent)
	assert.Equal(t, DefaultInterBatchDelay, cfg.Crawl.InterBatchDelay)
	assert.Equal(t, DefaultCheckpointEvery, cfg.Checkpoint.Every)
	assert.True(t, cfg.Checkpoint.Resume)
	assert.Equal(t, []string{"csv", "json"}, cfg.Output.Formats)
	assert.Equal(t, "div.b-doctor-card[data-doctor-id]", cfg.Site.Selectors.Card)
	assert.Equal(t, engine.DefaultCountNouns, cfg.Site.CountNouns)
}

func TestLoad_FileEnvFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	content := `
crawl:
  max_concurrent: 4
  partition_delay: 2s
checkpoint:
  every: 5
output:
  formats: [markdown]
site:
  selectors:
    card: "div.card"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("DIRCRAWL_CHECKPOINT_EVERY", "7")
	t.Setenv("DIRCRAWL_CRAWL_MAX_CONCURRENT", "6")

	cmd := newTestCommand(t, "--config", path, "--concurrency", "8", "-H", "Accept-Language: ru, en")

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Crawl.MaxConcurrent, "flag beats env and file")
	assert.Equal(t, 7, cfg.Checkpoint.Every, "env beats file")
	assert.Equal(t, 2*time.Second, cfg.Crawl.PartitionDelay, "file beats default")
	assert.Equal(t, []string{"markdown"}, cfg.Output.Formats)
	assert.Equal(t, "div.card", cfg.Site.Selectors.Card)
	assert.Equal(t, "data-doctor-id", cfg.Site.Selectors.IDAttr)
	assert.Equal(t, []string{"Accept-Language: ru, en"}, cfg.HTTP.Headers)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIRCRAWL_CRAWL_MAX_PAGES", "42")

	cfg, err := Load(newTestCommand(t))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Crawl.MaxPages)
}

func TestLoad_VerboseAndQuiet(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(newTestCommand(t, "-v"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	cfg, err = Load(newTestCommand(t, "-q"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(newTestCommand(t, "--config", "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "zero concurrency", args: []string{"--concurrency", "0"}},
		{name: "too much concurrency", args: []string{"--concurrency", "1000"}},
		{name: "relative base url", args: []string{"--base-url", "/moskva"}},
		{name: "unknown format", args: []string{"--format", "xml"}},
		{name: "mongo without uri", args: []string{"--format", "mongo"}},
		{name: "unknown backend", args: []string{"--checkpoint-backend", "redis"}},
		{name: "negative delay", args: []string{"--batch-delay", "-1s"}},
		{name: "bad log level", env: map[string]string{"DIRCRAWL_LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(newTestCommand(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestValidate_NormalizesFormats(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(newTestCommand(t, "--format", " CSV ,markdown"))
	require.NoError(t, err)
	assert.Equal(t, []string{"csv", "markdown"}, cfg.Output.Formats)
}

func TestLoad_ExampleFile(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("..", "..", "configs", "dircrawl.example.yaml"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	cfg, err := Load(newTestCommand(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "https://prodoctorov.ru", cfg.Site.BaseURL)
	assert.Equal(t, []string{"csv", "json", "markdown"}, cfg.Output.Formats)
	assert.Equal(t, []string{"Accept-Language: ru-RU,ru;q=0.9"}, cfg.HTTP.Headers)
	assert.Equal(t, 5*time.Minute, cfg.HTTP.ProxyCooldown)
}
