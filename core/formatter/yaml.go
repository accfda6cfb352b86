package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string        { return "yaml" }
func (f *YAMLFormatter) Description() string { return "YAML output format" }

// FormatList writes kind, count and data keys.
func (f *YAMLFormatter) FormatList(w io.Writer, l Listing, opts FormatOptions) error {
	rows := projectAll(l.Columns, l.Rows)
	return f.encode(w, map[string]any{
		"kind":  l.Kind,
		"count": len(rows),
		"data":  rows,
	})
}

// FormatRecord formats a single record as a YAML mapping.
func (f *YAMLFormatter) FormatRecord(w io.Writer, columns []string, record map[string]any, opts FormatOptions) error {
	if record == nil {
		return f.encode(w, nil)
	}
	return f.encode(w, project(columns, record))
}

// FormatValue encodes v as is. Struct fields use their yaml tags.
func (f *YAMLFormatter) FormatValue(w io.Writer, v any, opts FormatOptions) error {
	return f.encode(w, v)
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
