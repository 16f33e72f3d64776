// internal/cli/partitions.go
package cli

import (
	"fmt"
	"os"

	"github.com/law-makers/dircrawl/internal/ui"
	urlutil "github.com/law-makers/dircrawl/internal/utils/url"
	"github.com/spf13/cobra"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions <file>",
	Short: "List and validate a partition file",
	Long: `Loads a partition file the same way crawl does and prints every partition
with the URL of its first page. Duplicates are dropped and reported.`,
	Example: `  dircrawl partitions configs/moscow.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPartitions,
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
}

func runPartitions(_ *cobra.Command, args []string) error {
	parts, err := loadPartitions(args[0], nil)
	if err != nil {
		return err
	}
	base := GetConfig().Site.BaseURL

	for i, p := range parts {
		fmt.Fprintf(os.Stdout, "%4d  %s%-28s%s %s\n",
			i+1,
			ui.ColorCyan, p.Label, ui.ColorReset,
			ui.Info(urlutil.PageURL(base, p.Path, 1)))
	}
	fmt.Fprintf(os.Stdout, "\n%s %d partitions\n", ui.Success("OK"), len(parts))
	return nil
}
