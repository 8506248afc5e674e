package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/readyscan/internal/model"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer writes crawl results. Write emits the full result bundle;
// WriteSummary emits only the site overview.
type Writer interface {
	Write(result *model.Result) (int, error)
	WriteSummary(summary *Summary) (int, error)
}

// NewWriter returns the writer for format. JSON output is indented.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatYAML, "yml":
		return NewYAMLWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FileExtension returns the file extension, without dot, for format.
func FileExtension(format string) string {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return "yaml"
	case FormatMarkdown, "md":
		return "md"
	case FormatText:
		return "txt"
	default:
		return "json"
	}
}

// DefaultFileName returns the output file name for a crawl of domain,
// e.g. "example_com_crawl_results.json".
func DefaultFileName(domain, format string) string {
	return model.FileStem(domain) + "_crawl_results." + FileExtension(format)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
