package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/readyscan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs a plain-text overview for the terminal. It never
// prints page content; Write summarises the bundle first.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints issue sections even when they list nothing.
	showEmpty bool

	// verbose adds the schema types and per-issue URL lists.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the overview of result.
func (w *SimpleWriter) Write(result *model.Result) (int, error) {
	return w.WriteSummary(NewSummary(result, RunInfo{}))
}

// WriteSummary outputs the overview.
func (w *SimpleWriter) WriteSummary(s *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeContent(&sb, s)
	w.writeIssues(&sb, s)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, ruleWidth))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	sb.WriteString("                          READYSCAN REPORT\n")
	writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Domain:         %s\n", s.Domain)
	if s.SeedURL != "" {
		fmt.Fprintf(sb, "Seed URL:       %s\n", s.SeedURL)
	}
	fmt.Fprintf(sb, "Title:          %s\n", orDash(s.Title))
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Crawl Date:     %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if s.Interrupted {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeContent(sb *strings.Builder, s *Summary) {
	writeSection(sb, "CONTENT")

	fmt.Fprintf(sb, "  Pages crawled:     %d\n", s.PagesCrawled)
	fmt.Fprintf(sb, "  Total words:       %d\n", s.TotalWordCount)
	fmt.Fprintf(sb, "  Avg words/page:    %.1f\n", s.AvgWordCount)
	fmt.Fprintf(sb, "  Thin pages:        %d\n", s.PagesWithThinContent)
	fmt.Fprintf(sb, "  Q&A pairs:         %d\n", s.QAPairCount)
	fmt.Fprintf(sb, "  Images:            %d\n", s.ImageCount)
	fmt.Fprintf(sb, "  Links:             %d internal, %d external\n", s.InternalLinks, s.ExternalLinks)
	fmt.Fprintf(sb, "  Structured data:   %s\n", yesNo(s.HasSchemaMarkup))
	if s.FetchErrors > 0 {
		fmt.Fprintf(sb, "  Fetch errors:      %d\n", s.FetchErrors)
	}

	levels := make([]string, 0, model.HeadingLevels)
	for level := 1; level <= model.HeadingLevels; level++ {
		levels = append(levels, fmt.Sprintf("h%d=%d", level, s.HeadingCount.Get(level)))
	}
	fmt.Fprintf(sb, "  Headings:          %s\n", strings.Join(levels, " "))

	if w.verbose && len(s.SchemaTypes) > 0 {
		fmt.Fprintf(sb, "  Schema types:      %s\n", strings.Join(s.SchemaTypes, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeIssues(sb *strings.Builder, s *Summary) {
	issues := []struct {
		indicator string
		title     string
		urls      []string
	}{
		{"!", "Thin content", s.ThinPages},
		{"-", "Missing h1", s.PagesWithoutH1},
		{"-", "Missing meta description", s.PagesWithoutDescription},
	}

	hasIssues := false
	for _, issue := range issues {
		if len(issue.urls) > 0 {
			hasIssues = true
		}
	}
	if !hasIssues && !w.showEmpty {
		return
	}

	writeSection(sb, "ISSUES")
	for _, issue := range issues {
		if len(issue.urls) == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s: %d page(s)\n", issue.indicator, issue.title, len(issue.urls))
		if w.verbose {
			for _, u := range issue.urls {
				fmt.Fprintf(sb, "    %s\n", u)
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	writeRule(sb, "=")
	sb.WriteString("Report generated by readyscan\n")
	sb.WriteString("https://github.com/nao1215/readyscan\n")
	writeRule(sb, "=")
}
