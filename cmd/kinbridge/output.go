package main

import (
	"fmt"
	"os"
	"time"

	"kinbridge/internal/attach"
	"kinbridge/internal/format"
)

var (
	jsonFormatter  format.Formatter = format.JSONFormatter{Indent: "  "}
	tableFormatter format.Formatter = format.TableFormatter{}
)

func writeJSON(payload any) error {
	return jsonFormatter.Write(os.Stdout, payload)
}

func writeTable(payload format.Rower) error {
	return tableFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

// attemptRows renders journal entries as a table.
type attemptRows []attach.Attempt

func (rows attemptRows) Table() format.Table {
	table := format.Table{Header: []string{"ID", "RECORD", "STATE", "BACKEND", "FILE", "FILE KEY", "UPDATED", "ERROR"}}
	for _, a := range rows {
		table.Rows = append(table.Rows, []string{
			a.ID,
			a.RecordID,
			string(a.State),
			a.Backend,
			a.FileName,
			a.FileKey,
			formatTime(a.UpdatedAt),
			truncate(a.Error, 60),
		})
	}
	return table
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
