package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/readyscan/internal/config"
	"github.com/nao1215/readyscan/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "List stored crawl runs",
		Long: `History lists the crawl runs stored in the local database.

Without arguments it lists every crawled domain. With a domain it lists the
runs of that domain, newest first, with their IDs for 'readyscan compare'
and 'readyscan show'.

Examples:
  # List crawled domains
  readyscan history

  # List the runs of one domain
  readyscan history example.com

  # Delete a stored run
  readyscan history --delete 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Int64("delete", 0,
		"Delete the stored run with this ID and its pages")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	deleteID, err := cmd.Flags().GetInt64("delete")
	if err != nil {
		return err
	}
	if deleteID != 0 {
		return deleteRun(cmd, deleteID)
	}

	db, err := openHistoryDB(cmd)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No crawl history yet.")
		fmt.Fprintln(out, "\nUse 'readyscan crawl <url>' to crawl a site.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 0 {
		domains, err := db.ListDomains(ctx)
		if err != nil {
			return err
		}
		if len(domains) == 0 {
			fmt.Fprintln(out, "No crawled domains found in the database.")
			fmt.Fprintln(out, "\nUse 'readyscan crawl <url>' to crawl a site.")
			return nil
		}
		fmt.Fprintf(out, "Crawled domains (%d):\n\n", len(domains))
		for _, d := range domains {
			fmt.Fprintf(out, "  • %s\n", d)
		}
		fmt.Fprintln(out, "\nUse 'readyscan history <domain>' to see the runs of a domain.")
		return nil
	}

	domain := normalizeDomainArg(args[0])
	runs, err := db.ListRuns(ctx, domain)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", domain)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d runs):\n\n", domain, len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-8s  %-7s  %-8s  %s\n", "ID", "Date", "Duration", "Pages", "Words", "Notes")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))
	for _, r := range runs {
		var notes []string
		if r.HasSchemaMarkup {
			notes = append(notes, "schema")
		}
		if r.Interrupted {
			notes = append(notes, "interrupted")
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-8s  %-7d  %-8d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.PagesCrawled,
			r.TotalWordCount,
			strings.Join(notes, ","),
		)
	}
	fmt.Fprintln(out, "\nUse 'readyscan show --run-id <id>' to print a stored result.")
	return nil
}

func deleteRun(cmd *cobra.Command, id int64) error {
	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRun(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
	return nil
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [domain]",
		Short: "Print a stored crawl result",
		Long: `Show prints a stored result bundle, by default the latest run of a domain.

Examples:
  # Print the latest result of a domain as JSON
  readyscan show example.com

  # Print a specific run as Markdown
  readyscan show --run-id 3 -f markdown

  # Print only the summary
  readyscan show -f text example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().Int64P("run-id", "i", 0,
		"Stored run ID (see 'readyscan history <domain>')")
	cmd.Flags().StringP("format", "f", config.FormatJSON,
		"Output format: json, yaml, markdown or text")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if runID == 0 && len(args) == 0 {
		return errors.New("a domain or --run-id is required")
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if runID != 0 {
		result, err := db.GetResultByID(ctx, runID)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("run %d not found", runID)
		}
		return writeResult(cmd.OutOrStdout(), normalizeFormat(format), result)
	}

	domain := normalizeDomainArg(args[0])
	result, err := db.GetLatestResult(ctx, domain)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("no crawl history found for %s", domain)
	}
	return writeResult(cmd.OutOrStdout(), normalizeFormat(format), result)
}
