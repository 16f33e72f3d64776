// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/dircrawl/internal/app"
	"github.com/law-makers/dircrawl/internal/config"
	"github.com/law-makers/dircrawl/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dircrawl",
	Short: "Crawl a paginated practitioner directory into a deduplicated dataset",
	Long: `Dircrawl walks a list of directory partitions (specialty and location listings),
fetches every page of each one concurrently and merges the listings into one
deduplicated dataset.

Progress is checkpointed so an interrupted crawl resumes where it stopped.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Cancelling ctx stops a running crawl gracefully.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("Error:"), err)
		return 1
	}
	return 0
}

func init() {
	// Configuration and logging are set up before every command, but not for -h/help
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		app.SetupLogging(cfg, os.Stderr)
		if cfg.Log.JSON {
			ui.SetEnabled(false)
		}
		SetConfig(cfg)

		log.Debug().
			Str("base_url", cfg.Site.BaseURL).
			Str("config", cmd.Flag("config").Value.String()).
			Msg("Configuration loaded")
		return nil
	}
}

func init() {
	// Register centralized flags
	config.RegisterFlags(rootCmd)

	// Customize help and version flag descriptions
	rootCmd.Flags().BoolP("help", "h", false, "Help for dircrawl")
	rootCmd.Flags().Bool("version", false, "Version for dircrawl")
}

func init() {
	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		renderHelp(cmd.OutOrStdout(), cmd, true)
	})
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		renderHelp(cmd.ErrOrStderr(), cmd, false)
		return nil
	})
}
