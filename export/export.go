// Package export flattens run summaries into rows and writes them as CSV or
// as an aligned text table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/browserwing/actionrunner/models"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// DefaultMaxOutput is the number of runes kept of each output cell.
const DefaultMaxOutput = 500

// Columns is the column order of exported rows.
var Columns = []string{"type", "selector", "success", "execution_time_ms", "timestamp", "error", "output"}

// Row is one flattened record keyed by column name.
type Row map[string]string

// Rows flattens the per-action records of summary. maxOutput <= 0 selects
// DefaultMaxOutput.
func Rows(summary *models.RunSummary, maxOutput int) []Row {
	if summary == nil {
		return nil
	}
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	rows := make([]Row, 0, len(summary.Actions))
	for _, rec := range summary.Actions {
		rows = append(rows, Row{
			"type":              string(rec.Type),
			"selector":          rec.Selector,
			"success":           strconv.FormatBool(rec.Success),
			"execution_time_ms": strconv.FormatFloat(rec.ExecutionTimeMS, 'f', 2, 64),
			"timestamp":         formatTime(rec.Timestamp),
			"error":             rec.Error,
			"output":            truncate(stringify(rec.Output), maxOutput),
		})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func stringify(v any) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return o
	case fmt.Stringer:
		return o.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// header returns Columns followed by any extra keys, sorted.
func header(rows []Row) []string {
	known := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		known[c] = true
	}
	var extra []string
	for _, row := range rows {
		for k := range row {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(append([]string(nil), Columns...), extra...)
}

func values(row Row, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

// WriteCSV writes a header line and one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cols := header(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		if err := cw.Write(values(row, cols)); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// tableCell keeps table cells on one line.
func tableCell(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max-3]) + "..."
	}
	return s
}

// WriteTable renders rows as an aligned text table for terminals.
func WriteTable(w io.Writer, rows []Row) error {
	cols := header(rows)
	table := tablewriter.NewWriter(w)
	head := make([]any, len(cols))
	for i, c := range cols {
		head[i] = c
	}
	table.Header(head...)
	for _, row := range rows {
		cells := values(row, cols)
		for i := range cells {
			cells[i] = tableCell(cells[i], 60)
		}
		if err := table.Append(cells); err != nil {
			return errors.Wrap(err, "append table row")
		}
	}
	return errors.Wrap(table.Render(), "render table")
}

// Clean drops duplicate rows and, when removeEmpty is set, empty cells.
func Clean(rows []Row, removeDuplicates, removeEmpty bool) []Row {
	out := make([]Row, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		if removeEmpty {
			kept := make(Row, len(row))
			for k, v := range row {
				if v != "" {
					kept[k] = v
				}
			}
			row = kept
		}
		if removeDuplicates {
			// map keys marshal sorted, so equal rows give equal keys
			key, _ := json.Marshal(row)
			if seen[string(key)] {
				continue
			}
			seen[string(key)] = true
		}
		out = append(out, row)
	}
	return out
}

// Transformations lists the fields each transform applies to.
type Transformations struct {
	Lowercase []string `json:"lowercase_fields,omitempty"`
	Uppercase []string `json:"uppercase_fields,omitempty"`
	Trim      []string `json:"trim_fields,omitempty"`
}

// Transform applies t to copies of rows. Missing fields are ignored.
func Transform(rows []Row, t Transformations) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		next := make(Row, len(row))
		for k, v := range row {
			next[k] = v
		}
		apply := func(fields []string, fn func(string) string) {
			for _, f := range fields {
				if v, ok := next[f]; ok {
					next[f] = fn(v)
				}
			}
		}
		apply(t.Lowercase, strings.ToLower)
		apply(t.Uppercase, strings.ToUpper)
		apply(t.Trim, strings.TrimSpace)
		out = append(out, next)
	}
	return out
}
