package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl",
		Short: "Bounded-depth web crawler and site inventory tool",
		Long: `sitecrawl walks a web site breadth-first from a seed URL, up to a fixed
link depth, and records what it finds at every URL: the HTTP status, the
kind of content, and the title, first heading and meta description of
HTML pages.

Runs are stored in a local SQLite database so they can be shown again or
compared with a later crawl of the same site.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log output format: text or json")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewProbeCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
