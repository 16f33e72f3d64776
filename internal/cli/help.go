// internal/cli/help.go
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/dircrawl/internal/ui"
)

// renderHelp writes colorized help for cmd. The short form used for usage
// errors leaves out the descriptions, examples and global flags.
func renderHelp(w io.Writer, cmd *cobra.Command, full bool) {
	if full {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
		if cmd.Short != "" {
			fmt.Fprintln(w, cmd.Short)
		}
		if cmd.Long != "" && cmd.Long != cmd.Short {
			fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(cmd.Long))
		}
	}

	section(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s\n", ui.ColorCyan, cmd.CommandPath(), ui.ColorReset, ui.ColorYellow, ui.ColorReset)
	}

	if full && cmd.HasExample() {
		section(w, "Examples")
		printExamples(w, cmd.Example)
	}

	if cmd.HasAvailableSubCommands() {
		section(w, "Commands")
		printCommands(w, cmd)
	}

	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		printFlagsTo(w, cmd.LocalFlags().FlagUsages())
	}
	if full && cmd.HasAvailableInheritedFlags() {
		section(w, "Global Flags")
		printFlagsTo(w, cmd.InheritedFlags().FlagUsages())
	}

	target := cmd.CommandPath()
	if cmd.HasAvailableSubCommands() {
		target += " <command>"
	}
	fmt.Fprintf(w, "\n%sRun \"%s --help\" for more information.%s\n\n", ui.ColorDim, target, ui.ColorReset)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

// printExamples dims comment lines and prefixes commands with a prompt
func printExamples(w io.Writer, example string) {
	for _, line := range strings.Split(example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(line, "#"):
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, line, ui.ColorReset)
		default:
			fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, line, ui.ColorReset)
		}
	}
}

func printCommands(w io.Writer, cmd *cobra.Command) {
	width := 0
	var subs []*cobra.Command
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		subs = append(subs, c)
		width = max(width, len(c.Name()))
	}
	for _, c := range subs {
		fmt.Fprintf(w, "  %s%-*s%s  %s\n", ui.ColorCyan, width, c.Name(), ui.ColorReset, c.Short)
	}
}

// printFlagsTo colorizes pflag usage output, keeping its column alignment
func printFlagsTo(w io.Writer, usages string) {
	for _, line := range strings.Split(strings.TrimRight(usages, "\n"), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		if !strings.HasPrefix(trimmed, "-") {
			fmt.Fprintf(w, "%s%s%s%s\n", indent, ui.ColorDim, trimmed, ui.ColorReset)
			continue
		}
		name, _, _ := strings.Cut(trimmed, "   ")
		fmt.Fprintf(w, "%s%s%s%s%s%s%s\n",
			indent, ui.ColorGreen, name, ui.ColorReset,
			ui.ColorDim, trimmed[len(name):], ui.ColorReset)
	}
}
