package report

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/readyscan/internal/model"
)

// YAMLWriter outputs results in YAML.
type YAMLWriter struct {
	baseWriter
}

// NewYAMLWriter creates a YAMLWriter that outputs to the given writer.
func NewYAMLWriter(output io.Writer) *YAMLWriter {
	return &YAMLWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result bundle.
func (w *YAMLWriter) Write(result *model.Result) (int, error) {
	return w.writeYAML(result)
}

// WriteSummary outputs the summary.
func (w *YAMLWriter) WriteSummary(summary *Summary) (int, error) {
	return w.writeYAML(summary)
}

func (w *YAMLWriter) writeYAML(v any) (int, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
