package kintone

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// IDField is the field code the record store uses for the record id.
const IDField = "$id"

// Field is one typed field value wrapper as returned by the record store.
type Field struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// Record maps field codes to field wrappers. Values are decoded lazily through
// the typed accessors, each of which reports whether the field was usable.
type Record map[string]Field

// FileRef is one entry of a file field. Only FileKey is meaningful when
// writing; the other attributes are passthrough from reads.
type FileRef struct {
	FileKey     string `json:"fileKey"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size,omitempty"`
}

// TableRow is one row of a subtable field.
type TableRow struct {
	ID    string `json:"id,omitempty"`
	Value Record `json:"value"`
}

// ID returns the record id.
func (r Record) ID() (string, bool) {
	return r.Text(IDField)
}

// Text returns a single-value field (text, number, date, dropdown, id).
// An empty string value is reported as present.
func (r Record) Text(code string) (string, bool) {
	raw, ok := r.raw(code)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// TextOr returns the text value or def when it is absent or empty.
func (r Record) TextOr(code, def string) string {
	if s, ok := r.Text(code); ok && s != "" {
		return s
	}
	return def
}

// Number parses a numeric field. Absent, empty, and non-numeric values are
// reported as missing.
func (r Record) Number(code string) (float64, bool) {
	s, ok := r.Text(code)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Strings returns a multi-value field (checkbox, multi-select). A single
// string value is promoted to a one-element slice.
func (r Record) Strings(code string) ([]string, bool) {
	raw, ok := r.raw(code)
	if !ok {
		return nil, false
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		if values == nil {
			values = []string{}
		}
		return values, true
	}
	if s, ok := r.Text(code); ok {
		if s == "" {
			return []string{}, true
		}
		return []string{s}, true
	}
	return nil, false
}

// Files returns the entries of a file field.
func (r Record) Files(code string) ([]FileRef, bool) {
	raw, ok := r.raw(code)
	if !ok {
		return nil, false
	}
	var files []FileRef
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, false
	}
	if files == nil {
		files = []FileRef{}
	}
	return files, true
}

// Table returns the rows of a subtable field.
func (r Record) Table(code string) ([]TableRow, bool) {
	raw, ok := r.raw(code)
	if !ok {
		return nil, false
	}
	var rows []TableRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	if rows == nil {
		rows = []TableRow{}
	}
	return rows, true
}

func (r Record) raw(code string) (json.RawMessage, bool) {
	field, ok := r[code]
	if !ok {
		return nil, false
	}
	value := bytes.TrimSpace(field.Value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil, false
	}
	return value, true
}

// FieldValue is one field in a record update payload.
type FieldValue struct {
	Value any `json:"value"`
}

// Updates maps field codes to the values written by UpdateRecord.
type Updates map[string]FieldValue

// Set adds one field value and returns the map for chaining.
func (u Updates) Set(code string, value any) Updates {
	u[code] = FieldValue{Value: value}
	return u
}
