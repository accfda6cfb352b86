package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatList formats a listing as a table.
func (f *TableFormatter) FormatList(w io.Writer, l Listing, opts FormatOptions) error {
	if len(l.Rows) == 0 {
		fmt.Fprintf(w, "No %s found.\n", orDefault(l.Kind, "records"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	columns := l.Columns
	if len(columns) == 0 {
		columns = sortedKeys(l.Rows[0])
	}

	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range l.Rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = cell(row[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}

// FormatRecord formats a single record as label/value lines.
func (f *TableFormatter) FormatRecord(w io.Writer, columns []string, record map[string]any, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}
	if len(columns) == 0 {
		columns = sortedKeys(record)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range columns {
		fmt.Fprintf(tw, "%s:\t%s\n", label(col), cell(record[col], 0))
	}
	return tw.Flush()
}

// FormatValue writes maps as records and anything else through its JSON
// object form.
func (f *TableFormatter) FormatValue(w io.Writer, v any, opts FormatOptions) error {
	record, ok := v.(map[string]any)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &record); err != nil {
			_, err = fmt.Fprintln(w, string(b))
			return err
		}
	}
	return f.FormatRecord(w, nil, record, opts)
}

// label turns snake_case into Title Case.
func label(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// cell renders one table value.
func cell(val any, maxWidth int) string {
	var str string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		str = v
		if str == "" {
			return "-"
		}
	case bool:
		str = "no"
		if v {
			str = "yes"
		}
	case int:
		str = strconv.Itoa(v)
	case int64:
		str = strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			str = strconv.FormatInt(int64(v), 10)
		} else {
			str = strconv.FormatFloat(v, 'f', 2, 64)
		}
	case time.Duration:
		str = v.String()
	case time.Time:
		str = v.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		str = v.String()
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
