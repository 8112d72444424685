package kintone

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup that matched no record.
var ErrNotFound = errors.New("record not found")

// ResponseError is a non-success or malformed record store response. Body
// holds the raw response for diagnostics.
type ResponseError struct {
	Op     string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status > 0 {
		return fmt.Sprintf("kintone %s failed (status %d): %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("kintone %s failed: %s", e.Op, e.Body)
}
