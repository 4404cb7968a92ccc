package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/parser"
)

// NewCompareCmd creates the compare command.
// This command compares two stored runs of the same seed.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <seed-url>",
		Short: "Compare the latest crawl of a site with an earlier one",
		Long: `Compare displays the differences between two stored runs of the same seed.

It shows:
- URLs found in the current run but not in the previous one
- URLs that are no longer reachable from the seed
- URLs whose status code or content kind changed

By default the latest two runs are compared. Use 'sitecrawl show --list'
to see the stored runs.

Examples:
  # Compare the latest two runs of a site
  sitecrawl compare https://example.com

  # Compare the latest run with a specific run
  sitecrawl compare --with-run-id 5 https://example.com

  # Output the comparison as JSON
  sitecrawl compare --json https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use 'show --list' to see available IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	seed, err := parser.NormalizeSeed(args[0])
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	dbDir, err := resolveDBDir(cmd)
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, current, err := loadComparedRuns(cmd.Context(), db, seed, withRunID)
	if err != nil {
		return err
	}

	comparison := compareRuns(previous, current)
	if jsonOutput {
		return outputComparisonJSON(cmd.OutOrStdout(), comparison)
	}
	return outputComparisonText(cmd.OutOrStdout(), comparison)
}

// loadComparedRuns returns the run to compare against and the latest run
// of seed.
func loadComparedRuns(ctx context.Context, db *database.CrawlDB, seed string, withRunID int64) (*model.CrawlRun, *model.CrawlRun, error) {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no stored runs found for %s", seed)
	}
	if len(runs) < 2 && withRunID == 0 {
		return nil, nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current, err := db.GetRun(ctx, runs[0].ID)
	if err != nil {
		return nil, nil, err
	}

	previousID := withRunID
	if previousID == 0 {
		previousID = runs[1].ID
	}
	if previousID == current.ID {
		return nil, nil, fmt.Errorf("run %d is the latest run; choose an earlier one", previousID)
	}

	previous, err := db.GetRun(ctx, previousID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, nil, fmt.Errorf("run with ID %d not found", previousID)
		}
		return nil, nil, err
	}
	if previous.Seed != seed {
		return nil, nil, fmt.Errorf("run %d belongs to %s, not %s", previousID, previous.Seed, seed)
	}

	return previous, current, nil
}

// ComparisonResult holds the result of comparing two runs of one seed.
type ComparisonResult struct {
	// Seed is the crawled seed URL.
	Seed string `json:"seed"`

	// PreviousRun and CurrentRun describe the compared runs.
	PreviousRun RunInfo `json:"previous_run"`
	CurrentRun  RunInfo `json:"current_run"`

	// Added contains URLs visited only in the current run.
	Added []model.PageResult `json:"added,omitempty"`

	// Removed contains URLs visited only in the previous run.
	Removed []model.PageResult `json:"removed,omitempty"`

	// Changed contains URLs whose status code or content kind differs.
	Changed []ResultChange `json:"changed,omitempty"`

	// UnchangedCount is the number of URLs present and identical in both.
	UnchangedCount int `json:"unchanged_count"`
}

// RunInfo summarizes a run for comparison display.
type RunInfo struct {
	ID        int64         `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Outcome   model.Outcome `json:"outcome"`
	Pages     int           `json:"pages"`
	Errors    int           `json:"errors"`
}

// ResultChange describes how one URL changed between two runs.
type ResultChange struct {
	URL            string            `json:"url"`
	PreviousStatus int               `json:"previous_status"`
	CurrentStatus  int               `json:"current_status"`
	PreviousKind   model.ContentKind `json:"previous_kind"`
	CurrentKind    model.ContentKind `json:"current_kind"`
}

func newRunInfo(run *model.CrawlRun) RunInfo {
	return RunInfo{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		Outcome:   run.Outcome,
		Pages:     len(run.Results),
		Errors:    run.ErrorCount(),
	}
}

// compareRuns compares two runs URL by URL. All lists are sorted by URL.
func compareRuns(previous, current *model.CrawlRun) *ComparisonResult {
	result := &ComparisonResult{
		Seed:        current.Seed,
		PreviousRun: newRunInfo(previous),
		CurrentRun:  newRunInfo(current),
	}

	previousByURL := make(map[string]model.PageResult, len(previous.Results))
	for _, r := range previous.Results {
		previousByURL[r.URL] = r
	}
	currentByURL := make(map[string]model.PageResult, len(current.Results))
	for _, r := range current.Results {
		currentByURL[r.URL] = r
	}

	for u, cur := range currentByURL {
		prev, ok := previousByURL[u]
		if !ok {
			result.Added = append(result.Added, cur)
			continue
		}
		if prev.StatusCode != cur.StatusCode || prev.ContentKind != cur.ContentKind {
			result.Changed = append(result.Changed, ResultChange{
				URL:            u,
				PreviousStatus: prev.StatusCode,
				CurrentStatus:  cur.StatusCode,
				PreviousKind:   prev.ContentKind,
				CurrentKind:    cur.ContentKind,
			})
			continue
		}
		result.UnchangedCount++
	}
	for u, prev := range previousByURL {
		if _, ok := currentByURL[u]; !ok {
			result.Removed = append(result.Removed, prev)
		}
	}

	byURL := func(rs []model.PageResult) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].URL < rs[j].URL })
	}
	byURL(result.Added)
	byURL(result.Removed)
	sort.Slice(result.Changed, func(i, j int) bool { return result.Changed[i].URL < result.Changed[j].URL })

	return result
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "Crawl Comparison: %s\n", result.Seed)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nPrevious run: #%d %s (%s)\n", result.PreviousRun.ID,
		result.PreviousRun.StartedAt.Local().Format(listTimeFormat), result.PreviousRun.Outcome)
	fmt.Fprintf(w, "Current run:  #%d %s (%s)\n", result.CurrentRun.ID,
		result.CurrentRun.StartedAt.Local().Format(listTimeFormat), result.CurrentRun.Outcome)

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Pages",
		result.PreviousRun.Pages, result.CurrentRun.Pages,
		formatDelta(result.CurrentRun.Pages-result.PreviousRun.Pages))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Errors",
		result.PreviousRun.Errors, result.CurrentRun.Errors,
		formatDelta(result.CurrentRun.Errors-result.PreviousRun.Errors))

	if len(result.Added) > 0 {
		fmt.Fprintf(w, "\nAdded URLs (%d):\n", len(result.Added))
		for _, r := range result.Added {
			fmt.Fprintf(w, "  [+] [%d %s] %s\n", r.StatusCode, r.ContentKind, r.URL)
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved URLs (%d):\n", len(result.Removed))
		for _, r := range result.Removed {
			fmt.Fprintf(w, "  [-] [%d %s] %s\n", r.StatusCode, r.ContentKind, r.URL)
		}
	}

	if len(result.Changed) > 0 {
		fmt.Fprintf(w, "\nChanged URLs (%d):\n", len(result.Changed))
		for _, c := range result.Changed {
			fmt.Fprintf(w, "  [~] %s\n", c.URL)
			if c.PreviousStatus != c.CurrentStatus {
				fmt.Fprintf(w, "      status: %d -> %d\n", c.PreviousStatus, c.CurrentStatus)
			}
			if c.PreviousKind != c.CurrentKind {
				fmt.Fprintf(w, "      kind:   %s -> %s\n", c.PreviousKind, c.CurrentKind)
			}
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d URLs\n", result.UnchangedCount)
	}

	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
