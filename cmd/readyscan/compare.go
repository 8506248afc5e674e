package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/readyscan/internal/config"
	"github.com/nao1215/readyscan/internal/database"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// It diffs two stored crawl runs of the same domain.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <domain>",
		Short: "Compare stored crawl runs of a domain",
		Long: `Compare shows what changed between two crawls of the same domain:
- Pages that appeared or disappeared
- Pages whose visible text changed
- Changes in page count and total word count

By default the two most recent runs are compared. Use 'readyscan crawl' to
store runs and 'readyscan history' to see them.

Examples:
  # Compare the latest two crawls of a domain
  readyscan compare example.com

  # Compare the latest crawl with a specific run
  readyscan compare --with-run-id 5 example.com

  # Compare the latest crawl with the first one since a date
  readyscan compare --since 2026-01-01 example.com

  # Output the comparison as JSON
  readyscan compare --json example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with this run ID (see 'readyscan history')")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("with-run-id", "since")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	domain := normalizeDomainArg(args[0])

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Validate before opening the database.
	var since time.Time
	if sinceDate != "" {
		since, err = time.Parse(time.DateOnly, sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	diff, err := compareRuns(cmd.Context(), db, domain, withRunID, since)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, diff)
	case markdownOutput:
		return outputComparisonMarkdown(out, diff)
	default:
		return outputComparisonText(out, diff)
	}
}

// compareRuns picks the runs to compare. The latest run of domain is
// always the current one.
func compareRuns(ctx context.Context, db *database.CrawlDB, domain string, withRunID int64, since time.Time) (*database.RunDiff, error) {
	if withRunID == 0 {
		return db.CompareLatest(ctx, domain, since)
	}

	runs, err := db.ListRuns(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no crawl history found for %s", domain)
	}
	for _, r := range runs {
		if r.ID == withRunID {
			return db.CompareRuns(ctx, withRunID, runs[0].ID)
		}
	}
	return nil, fmt.Errorf("%w: run %d of %s", database.ErrRunNotFound, withRunID, domain)
}

// openHistoryDB opens the existing history database named by --db-dir.
func openHistoryDB(cmd *cobra.Command) (*database.CrawlDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// normalizeDomainArg accepts a bare host or a URL and returns the host.
func normalizeDomainArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if _, rest, ok := strings.Cut(arg, "://"); ok {
		arg = rest
	}
	if i := strings.IndexAny(arg, "/?#"); i >= 0 {
		arg = arg[:i]
	}
	return arg
}

// comparisonJSON is the JSON form of a RunDiff.
type comparisonJSON struct {
	Domain         string   `json:"domain"`
	Previous       runJSON  `json:"previous_run"`
	Current        runJSON  `json:"current_run"`
	PageCountDelta int      `json:"page_count_delta"`
	WordCountDelta int      `json:"word_count_delta"`
	Added          []string `json:"added_pages"`
	Removed        []string `json:"removed_pages"`
	Changed        []string `json:"changed_pages"`
	UnchangedCount int      `json:"unchanged_count"`
}

type runJSON struct {
	ID              int64     `json:"id"`
	SeedURL         string    `json:"seed_url"`
	StartedAt       time.Time `json:"started_at"`
	PagesCrawled    int       `json:"pages_crawled"`
	TotalWordCount  int       `json:"total_word_count"`
	HasSchemaMarkup bool      `json:"has_schema_markup"`
	Interrupted     bool      `json:"interrupted"`
}

func newRunJSON(r database.RunRecord) runJSON {
	return runJSON{
		ID:              r.ID,
		SeedURL:         r.SeedURL,
		StartedAt:       r.StartedAt,
		PagesCrawled:    r.PagesCrawled,
		TotalWordCount:  r.TotalWordCount,
		HasSchemaMarkup: r.HasSchemaMarkup,
		Interrupted:     r.Interrupted,
	}
}

func outputComparisonJSON(w io.Writer, diff *database.RunDiff) error {
	v := comparisonJSON{
		Domain:         diff.Current.Domain,
		Previous:       newRunJSON(diff.Previous),
		Current:        newRunJSON(diff.Current),
		PageCountDelta: diff.PageCountDelta(),
		WordCountDelta: diff.WordCountDelta(),
		Added:          nonNil(diff.Added),
		Removed:        nonNil(diff.Removed),
		Changed:        nonNil(diff.Changed),
		UnchangedCount: diff.Unchanged,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func outputComparisonMarkdown(w io.Writer, diff *database.RunDiff) error {
	md := markdown.NewMarkdown(w)
	md.H1("Crawl Comparison: " + diff.Current.Domain)
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run ID", strconv.FormatInt(diff.Previous.ID, 10), strconv.FormatInt(diff.Current.ID, 10), "-"},
			{"Date", diff.Previous.StartedAt.Local().Format("2006-01-02 15:04"), diff.Current.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Pages", strconv.Itoa(diff.Previous.PagesCrawled), strconv.Itoa(diff.Current.PagesCrawled), formatDelta(diff.PageCountDelta())},
			{"Words", strconv.Itoa(diff.Previous.TotalWordCount), strconv.Itoa(diff.Current.TotalWordCount), formatDelta(diff.WordCountDelta())},
			{"Schema markup", yesNo(diff.Previous.HasSchemaMarkup), yesNo(diff.Current.HasSchemaMarkup), "-"},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Note(fmt.Sprintf("No page changes (%d pages unchanged).", diff.Unchanged))
		return md.Build()
	}

	for _, section := range []struct {
		title string
		urls  []string
	}{
		{"Added Pages", diff.Added},
		{"Removed Pages", diff.Removed},
		{"Changed Pages", diff.Changed},
	} {
		if len(section.urls) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", section.title, len(section.urls)))
		md.PlainText("")
		md.BulletList(section.urls...)
		md.PlainText("")
	}

	if diff.Unchanged > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d pages unchanged*", diff.Unchanged)
	}
	return md.Build()
}

func outputComparisonText(w io.Writer, diff *database.RunDiff) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Crawl Comparison: %s\n", diff.Current.Domain)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "\nPrevious run: #%-5d %s\n", diff.Previous.ID, diff.Previous.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&sb, "Current run:  #%-5d %s\n", diff.Current.ID, diff.Current.StartedAt.Local().Format(time.DateTime))

	fmt.Fprintf(&sb, "\n  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Pages",
		diff.Previous.PagesCrawled, diff.Current.PagesCrawled, formatDelta(diff.PageCountDelta()))
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Words",
		diff.Previous.TotalWordCount, diff.Current.TotalWordCount, formatDelta(diff.WordCountDelta()))

	for _, section := range []struct {
		title  string
		marker string
		urls   []string
	}{
		{"Added Pages", "+", diff.Added},
		{"Removed Pages", "-", diff.Removed},
		{"Changed Pages", "~", diff.Changed},
	} {
		if len(section.urls) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d):\n", section.title, len(section.urls))
		for _, u := range section.urls {
			fmt.Fprintf(&sb, "  [%s] %s\n", section.marker, u)
		}
	}

	fmt.Fprintf(&sb, "\nUnchanged: %d pages\n", diff.Unchanged)

	_, err := io.WriteString(w, sb.String())
	return err
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
