// internal/cli/checkpoint.go
package cli

import (
	"fmt"
	"os"

	"github.com/law-makers/dircrawl/internal/checkpoint"
	"github.com/law-makers/dircrawl/internal/ui"
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or discard the saved crawl checkpoint",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest checkpoint",
	Example: `  dircrawl checkpoint show
  dircrawl checkpoint show --checkpoint-backend sqlite --checkpoint-dir ./state`,
	Args: cobra.NoArgs,
	RunE: runCheckpointShow,
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the latest checkpoint so the next crawl starts fresh",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointClear,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointClearCmd)
}

func openCheckpoints() (*checkpoint.Manager, func(), error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	storage, err := checkpoint.Open(cfg.Checkpoint.Backend, cfg.Checkpoint.Dir)
	if err != nil {
		return nil, nil, err
	}
	return checkpoint.NewManager(storage, nil, 0), func() { _ = storage.Close() }, nil
}

func runCheckpointShow(cmd *cobra.Command, _ []string) error {
	m, closeFn, err := openCheckpoints()
	if err != nil {
		return err
	}
	defer closeFn()

	cp, err := m.LoadLatest(cmd.Context())
	if err != nil {
		return err
	}
	if cp == nil {
		fmt.Fprintln(os.Stdout, ui.Info("No checkpoint found"))
		return nil
	}

	last := "-"
	if n := len(cp.Progress.Stats); n > 0 {
		last = cp.Progress.Stats[n-1].Partition
	}

	fmt.Fprintf(os.Stdout, "\n%s\n", ui.Bold("Checkpoint"))
	fmt.Fprintf(os.Stdout, "  %-22s %s\n", "Run", cp.RunID)
	fmt.Fprintf(os.Stdout, "  %-22s %s\n", "Created", cp.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(os.Stdout, "  %-22s %d\n", "Partitions completed", cp.Progress.PartitionIndex+1)
	fmt.Fprintf(os.Stdout, "  %-22s %s\n", "Last partition", last)
	fmt.Fprintf(os.Stdout, "  %-22s %d\n", "Records", len(cp.Records))
	fmt.Fprintf(os.Stdout, "  %-22s %s\n\n", "Checksum", ui.Info(cp.Checksum))
	return nil
}

func runCheckpointClear(cmd *cobra.Command, _ []string) error {
	m, closeFn, err := openCheckpoints()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, ui.Success("Checkpoint cleared"))
	return nil
}
