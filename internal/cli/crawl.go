// internal/cli/crawl.go
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/law-makers/dircrawl/internal/config"
	"github.com/law-makers/dircrawl/internal/engine"
	"github.com/law-makers/dircrawl/internal/partitions"
	"github.com/law-makers/dircrawl/internal/runctx"
	"github.com/law-makers/dircrawl/internal/ui"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	partitionsFile string
	runID          string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl [partition-path...]",
	Short: "Crawl every partition and write the merged dataset",
	Long: `Crawls each partition in order. For every partition the first page is fetched,
the listing total is read from it and the remaining pages are fetched concurrently
under a global limit with a pause between bursts.

Listings are merged by id across partitions. A checkpoint is written every N
completed partitions and once more at the end, so an interrupted crawl resumes
after the last completed partition. Ctrl-C stops issuing requests, drains the
fetches in flight and still writes the partial dataset.`,
	Example: `  # Crawl the bundled Moscow partitions
  dircrawl crawl --partitions configs/moscow.yaml

  # Crawl two partitions given inline, with 5 concurrent fetches
  dircrawl crawl /moskva/terapevt /moskva/pediatr --concurrency 5

  # Probe pages one by one when a listing shows no total
  dircrawl crawl -p configs/moscow.yaml --probe --max-pages 300

  # Write a markdown report and upsert into MongoDB
  dircrawl crawl -p configs/moscow.yaml --format csv,markdown,mongo --mongo-uri mongodb://localhost:27017`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&partitionsFile, "partitions", "p", "", "Partition list file (.yaml, .json or one path per line)")
	crawlCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (generated when empty)")
	config.RegisterCrawlFlags(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	parts, err := loadPartitions(partitionsFile, args)
	if err != nil {
		return err
	}

	ctx := runctx.WithRun(cmd.Context(), runID)
	rc := runctx.FromContext(ctx)
	log.Logger = log.With().Str("run_id", rc.RunID).Logger()

	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	a.StartMetrics(ctx)

	log.Info().
		Int("partitions", len(parts)).
		Int("concurrency", a.Config.Crawl.MaxConcurrent).
		Str("sink", a.Sink.Name()).
		Msg("Starting crawl")

	bar := newPartitionBar(len(parts), a.Config)
	onPartition := func(index, total int, stats models.PartitionStats) {
		if bar == nil {
			return
		}
		bar.Describe(fmt.Sprintf("%-28s +%d", truncate(stats.Partition, 28), stats.New))
		_ = bar.Set(index + 1)
	}

	ds, err := a.Crawl(ctx, parts, onPartition)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if ds != nil {
		printSummary(ds, a.OutputDir(), a.Config.Output.Formats)
	}
	if err != nil {
		return runctx.NewRunError(ctx, err)
	}
	if ds.Interrupted {
		return fmt.Errorf("crawl interrupted after %d of %d partitions; rerun to resume", len(ds.Stats), len(parts))
	}
	return nil
}

// loadPartitions reads the partition file, or takes paths from args
func loadPartitions(file string, args []string) ([]models.Partition, error) {
	if file != "" && len(args) > 0 {
		return nil, fmt.Errorf("use either --partitions or partition paths, not both")
	}
	if file != "" {
		parts, err := partitions.Load(file)
		if err != nil {
			return nil, fmt.Errorf("load partitions: %w", err)
		}
		return parts, nil
	}
	if len(args) == 0 {
		return nil, errors.New("no partitions: pass --partitions FILE or partition paths")
	}
	parts := partitions.FromPaths(args)
	if len(parts) == 0 {
		return nil, engine.ErrNoPartitions
	}
	return parts, nil
}

func newPartitionBar(total int, cfg *config.Config) *progressbar.ProgressBar {
	if cfg.Log.JSON || cfg.Log.Level == "error" || cfg.Log.Level == "debug" {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("partitions"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func printSummary(ds *models.Dataset, outDir string, formats []string) {
	failed, pagesFailed := 0, 0
	for _, s := range ds.Stats {
		if s.Failed {
			failed++
		}
		pagesFailed += s.PagesFailed
	}

	status := ui.Success("complete")
	if ds.Interrupted {
		status = ui.Error("interrupted")
	}

	fmt.Fprintf(os.Stdout, "\n%s %s\n", ui.Bold("Crawl"), status)
	fmt.Fprintf(os.Stdout, "  %-18s %s\n", "Run", ds.RunID)
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "Partitions", len(ds.Stats))
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "Failed partitions", failed)
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "Failed pages", pagesFailed)
	fmt.Fprintf(os.Stdout, "  %-18s %s\n", "Records", ui.Bold(ui.Count(len(ds.Records))))
	fmt.Fprintf(os.Stdout, "  %-18s %s\n", "Elapsed", ds.FinishedAt.Sub(ds.StartedAt).Round(time.Second))
	if len(formats) > 0 {
		fmt.Fprintf(os.Stdout, "  %-18s %s %v\n", "Output", ui.Info(outDir), formats)
	}
	fmt.Fprintln(os.Stdout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
