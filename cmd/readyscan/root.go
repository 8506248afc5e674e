package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for readyscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readyscan",
		Short: "Crawl a website and report its AI search readiness",
		Long: `readyscan crawls a website breadth-first from a seed URL and extracts what
AI search engines look at: page text, headings, meta descriptions, images,
JSON-LD and microdata, and question/answer pairs.

Results are written as JSON, YAML or Markdown and stored in a local history
database so later crawls can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
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
