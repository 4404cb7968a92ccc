package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	sclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/parser"
)

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <url>...",
		Short: "Print the content kind of URLs",
		Long: `Probe classifies each URL the way the crawler does: by file extension
first, then by the Content-Type of a HEAD request.

Examples:
  sitecrawl probe https://example.com/logo.png https://example.com/about`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProbeCmd,
	}

	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	return cmd
}

// runProbeCmd executes the probe command.
func runProbeCmd(cmd *cobra.Command, args []string) error {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidTimeout)
	}

	client := fetcher.New(
		fetcher.WithTimeout(timeout),
		fetcher.WithUserAgent(userAgent),
		fetcher.WithLogger(sclog.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))),
	)

	out := cmd.OutOrStdout()
	for _, raw := range args {
		u, err := parser.NormalizeSeed(raw)
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", raw, err)
		}

		start := time.Now()
		kind := client.ProbeType(cmd.Context(), u)
		fmt.Fprintf(out, "%-10s %s (%s)\n", kind, u, time.Since(start).Round(time.Millisecond))
	}
	return nil
}
