package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/parser"
	"github.com/nao1215/sitecrawl/internal/report"
)

// listTimeFormat is how run start times are shown in listings.
const listTimeFormat = "2006-01-02 15:04:05"

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a stored crawl run",
		Long: `Show prints a crawl run from the database, or reloads a JSON export.

Examples:
  # List stored runs
  sitecrawl show --list

  # List the runs of one site
  sitecrawl show --list --seed https://example.com

  # Show the latest run of a site as Markdown
  sitecrawl show --seed https://example.com -f markdown

  # Show a run by ID and export it as CSV
  sitecrawl show 12 -f csv -o run-12.csv

  # Convert a JSON export to a spreadsheet
  sitecrawl show --input run.json -f xlsx -o run.xlsx

  # Delete a stored run
  sitecrawl show --delete 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("seed", "s", "",
		"Show the latest run of this seed URL")
	cmd.Flags().StringP("input", "i", "",
		"Reload results from a JSON export instead of the database")
	cmd.Flags().BoolP("list", "l", false,
		"List stored runs (filtered by --seed when given)")
	cmd.Flags().Bool("seeds", false,
		"List every seed with stored runs")
	cmd.Flags().Int64("delete", 0,
		"Delete the stored run with this ID")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: text, json, csv, xlsx or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to file (creates directories if needed)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	input, err := flags.GetString("input")
	if err != nil {
		return err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return err
	}
	if format == "xlsx" && output == "" {
		return fmt.Errorf("configuration error: %w", config.ErrBinaryFormatNeedsFile)
	}

	// A JSON export needs no database.
	if input != "" {
		results, err := report.ReadJSONFile(input)
		if err != nil {
			return err
		}
		return outputReport(format, output, cmd.OutOrStdout(), false, runFromResults(input, results))
	}

	seed, err := flags.GetString("seed")
	if err != nil {
		return err
	}
	if seed != "" {
		if seed, err = parser.NormalizeSeed(seed); err != nil {
			return fmt.Errorf("invalid seed: %w", err)
		}
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

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	listSeeds, err := flags.GetBool("seeds")
	if err != nil {
		return err
	}
	if listSeeds {
		return printSeeds(ctx, db, out)
	}

	list, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return printRunList(ctx, db, seed, out)
	}

	deleteID, err := flags.GetInt64("delete")
	if err != nil {
		return err
	}
	if deleteID != 0 {
		if err := db.DeleteRun(ctx, deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %d\n", deleteID)
		return nil
	}

	var run *model.CrawlRun
	switch {
	case len(args) == 1:
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		run, err = db.GetRun(ctx, id)
		if err != nil {
			return err
		}
	case seed != "":
		run, err = db.GetLatestRun(ctx, seed)
		if err != nil {
			return err
		}
	default:
		return errors.New("run id or --seed is required (use --list to see stored runs)")
	}

	return outputReport(format, output, out, false, run)
}

// resolveDBDir returns --db-dir, then SITECRAWL_DB_DIR, then the XDG data
// directory.
func resolveDBDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return "", err
	}
	if dir != "" {
		return dir, nil
	}

	env, err := config.LoadEnv(dotenvFile)
	if err != nil {
		return "", err
	}
	if env.DBDir != nil && *env.DBDir != "" {
		return *env.DBDir, nil
	}
	return config.XDGDataDir(), nil
}

// runFromResults wraps reloaded results in a run. The seed is the first
// depth-0 result, or the file name when there is none.
func runFromResults(path string, results []model.PageResult) *model.CrawlRun {
	run := model.NewCrawlRun(filepath.Base(path), 0)
	seedFound := false
	for _, r := range results {
		if r.Depth == 0 && !seedFound {
			run.Seed = r.URL
			seedFound = true
		}
		run.MaxDepth = max(run.MaxDepth, r.Depth)
		run.Add(r)
	}
	run.Outcome = model.OutcomeCompleted
	run.FinishedAt = run.StartedAt
	return run
}

// printRunList prints stored runs as a table.
func printRunList(ctx context.Context, db *database.CrawlDB, seed string, out io.Writer) error {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs found.")
		fmt.Fprintln(out, "\nUse 'sitecrawl crawl <seed-url>' to crawl a site.")
		return nil
	}

	tbl := table.New("ID", "Started", "Outcome", "Pages", "Errors", "Seed").WithWriter(out)
	for _, meta := range runs {
		tbl.AddRow(
			meta.ID,
			meta.StartedAt.Local().Format(listTimeFormat),
			meta.Outcome,
			meta.Pages,
			meta.Errors,
			meta.Seed,
		)
	}
	tbl.Print()

	fmt.Fprintln(out, "\nUse 'sitecrawl show <id>' to print a run.")
	return nil
}

// printSeeds prints every seed with stored runs.
func printSeeds(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return err
	}

	if len(seeds) == 0 {
		fmt.Fprintln(out, "No crawled sites found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(out, "  %s\n", seed)
	}
	return nil
}
