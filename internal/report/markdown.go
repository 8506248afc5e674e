package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/readyscan/internal/model"
)

// MarkdownWriter outputs results as a Markdown document for sharing and
// review. Write adds per-page tables to the summary sections.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary followed by the pages and structured data.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	summary := NewSummary(result, RunInfo{})
	w.writeSummary(md, summary)
	w.writePages(md, result.Pages)
	w.writeStructuredData(md, result.StructuredData)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the summary sections only.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeSummary(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *Summary) {
	w.writeHeader(md, s)
	w.writeContent(md, s)
	w.writeHeadings(md, s)
	w.writeAlert(md, s)
	w.writeIssues(md, s)
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Crawl Report: " + s.Domain)
	md.PlainText("")

	rows := [][]string{
		{"Domain", "`" + s.Domain + "`"},
		{"Title", orDash(s.Title)},
		{"Description", orDash(s.Description)},
	}
	if s.SeedURL != "" {
		rows = append(rows, []string{"Seed URL", s.SeedURL})
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows, []string{"Crawl Date", s.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	if s.Duration > 0 {
		rows = append(rows, []string{"Duration", s.Duration.Round(time.Millisecond).String()})
	}
	rows = append(rows, []string{"Status", statusText(s)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(s *Summary) string {
	if s.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeContent(md *markdown.Markdown, s *Summary) {
	md.H2("Content")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages Crawled", strconv.Itoa(s.PagesCrawled)},
			{"Total Words", strconv.Itoa(s.TotalWordCount)},
			{"Average Words per Page", fmt.Sprintf("%.1f", s.AvgWordCount)},
			{"Thin Pages (< " + strconv.Itoa(model.ThinContentThreshold) + " words)", strconv.Itoa(s.PagesWithThinContent)},
			{"Q&A Pairs", strconv.Itoa(s.QAPairCount)},
			{"Images", strconv.Itoa(s.ImageCount)},
			{"Internal Links", strconv.Itoa(s.InternalLinks)},
			{"External Links", strconv.Itoa(s.ExternalLinks)},
			{"Structured Data", yesNo(s.HasSchemaMarkup)},
			{"Fetch Errors", strconv.Itoa(s.FetchErrors)},
		},
	})
	md.PlainText("")

	if len(s.SchemaTypes) > 0 {
		md.PlainText("**Schema types**")
		md.PlainText("")
		md.BulletList(s.SchemaTypes...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeHeadings(md *markdown.Markdown, s *Summary) {
	md.H2("Headings")
	md.PlainText("")

	rows := make([][]string, 0, model.HeadingLevels)
	for level := 1; level <= model.HeadingLevels; level++ {
		rows = append(rows, []string{"h" + strconv.Itoa(level), strconv.Itoa(s.HeadingCount.Get(level))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Level", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.HeadingCount.Total() > 0 {
		w.writePieChart(md, s)
	}
}

// writePieChart writes a mermaid pie chart of the heading distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Heading Distribution"),
		piechart.WithShowData(true),
	)
	for level := 1; level <= model.HeadingLevels; level++ {
		if n := s.HeadingCount.Get(level); n > 0 {
			chart.LabelAndIntValue("h"+strconv.Itoa(level), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.PagesCrawled == 0:
		md.Cautionf("No pages could be crawled.")
	case s.PagesWithThinContent == s.PagesCrawled:
		md.Warningf("All %d crawled page(s) have thin content.", s.PagesCrawled)
	case !s.HasSchemaMarkup:
		md.Importantf("No structured data was found on the crawled pages.")
	case s.PagesWithThinContent > 0:
		md.Note(fmt.Sprintf("%d of %d page(s) have thin content.", s.PagesWithThinContent, s.PagesCrawled))
	default:
		md.Tip("Every crawled page has substantial content and the site carries structured data.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, s *Summary) {
	sections := []struct {
		title string
		urls  []string
	}{
		{"Thin Pages", s.ThinPages},
		{"Pages Without H1", s.PagesWithoutH1},
		{"Pages Without Meta Description", s.PagesWithoutDescription},
	}
	for _, sec := range sections {
		if len(sec.urls) == 0 {
			continue
		}
		md.H3(sec.title)
		md.PlainText("")
		md.BulletList(sec.urls...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []model.PageRecord) {
	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			p.URL,
			truncateString(orDash(p.Title), 50),
			strconv.Itoa(p.WordCount),
			strconv.Itoa(len(p.Headings)),
			strconv.Itoa(len(p.QAPairs)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Words", "Headings", "Q&A"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, p := range pages {
		if len(p.QAPairs) == 0 {
			continue
		}
		md.Details("Q&A: "+p.URL, qaText(p.QAPairs))
	}
	md.PlainText("")
}

func qaText(pairs []model.QAPair) string {
	parts := make([]string, len(pairs))
	for i, qa := range pairs {
		parts[i] = "**Q:** " + qa.Question + "\n\n**A:** " + qa.Answer
	}
	return strings.Join(parts, "\n\n")
}

func (w *MarkdownWriter) writeStructuredData(md *markdown.Markdown, records []model.StructuredDataRecord) {
	md.H2("Structured Data")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No structured data found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.URL,
			string(r.Kind),
			r.Type,
			orDash(strings.Join(SchemaTypes([]model.StructuredDataRecord{r}), ", ")),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Format", "Schema Types"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [readyscan](https://github.com/nao1215/readyscan)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
