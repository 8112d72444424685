// Package format writes CLI output as JSON or aligned text tables.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes indented JSON. Non-ASCII text and URLs are written
// verbatim.
type JSONFormatter struct {
	Indent string
}

// Write writes payload as JSON.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(payload)
}

// Table is a header plus rows of cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Rower is implemented by payloads that render as a Table.
type Rower interface {
	Table() Table
}

// TableFormatter writes Rower payloads as tab-aligned columns. Other
// payloads fall back to %v.
type TableFormatter struct{}

// Write writes payload as a table.
func (TableFormatter) Write(w io.Writer, payload any) error {
	rower, ok := payload.(Rower)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", payload)
		return err
	}
	table := rower.Table()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(table.Header) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(table.Header, "\t")); err != nil {
			return err
		}
	}
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == "" {
				cell = "-"
			}
			cells[i] = strings.ReplaceAll(cell, "\t", " ")
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
