// Package export materializes leaf-record sequences into row-oriented
// output. It is a pure consumer of the engine's output.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/goscrape/internal/scrape"
)

// Fields returns the field ordering for the given records: the union of
// all fields across all records, in first-seen order with ties within a
// record broken alphabetically.
func Fields(records []scrape.Context) []string {
	var order []string
	seen := make(map[string]struct{})

	for _, record := range records {
		keys := make([]string, 0, len(record))
		for k := range record {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
				seen[k] = struct{}{}
			}
		}
		sort.Strings(keys)
		order = append(order, keys...)
	}

	return order
}

// WriteCSV serializes the records as CSV with one column per field.
// A nil fields slice infers the ordering via Fields. Missing fields
// render as empty cells.
func WriteCSV(w io.Writer, records []scrape.Context, fields []string) error {
	t := build(records, fields)

	if _, err := io.WriteString(w, t.RenderCSV()+"\n"); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteTable renders the records as a human-readable table.
func WriteTable(w io.Writer, records []scrape.Context, fields []string) error {
	t := build(records, fields)

	if _, err := io.WriteString(w, t.Render()+"\n"); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// build assembles the go-pretty writer shared by the output formats.
func build(records []scrape.Context, fields []string) table.Writer {
	if fields == nil {
		fields = Fields(records)
	}

	t := table.NewWriter()

	header := make(table.Row, len(fields))
	for i, f := range fields {
		header[i] = f
	}
	t.AppendHeader(header)

	for _, record := range records {
		row := make(table.Row, len(fields))
		for i, f := range fields {
			if v, ok := record[f]; ok {
				row[i] = v
			} else {
				row[i] = ""
			}
		}
		t.AppendRow(row)
	}

	return t
}
