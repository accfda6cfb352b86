package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

// FormatList writes {"kind", "count", "data"}.
func (f *JSONFormatter) FormatList(w io.Writer, l Listing, opts FormatOptions) error {
	rows := projectAll(l.Columns, l.Rows)
	return f.encode(w, map[string]any{
		"kind":  l.Kind,
		"count": len(rows),
		"data":  rows,
	}, opts.Compact)
}

// FormatRecord formats a single record as a JSON object.
func (f *JSONFormatter) FormatRecord(w io.Writer, columns []string, record map[string]any, opts FormatOptions) error {
	if record == nil {
		return f.encode(w, nil, opts.Compact)
	}
	return f.encode(w, project(columns, record), opts.Compact)
}

// FormatValue encodes v as is.
func (f *JSONFormatter) FormatValue(w io.Writer, v any, opts FormatOptions) error {
	return f.encode(w, v, opts.Compact)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
