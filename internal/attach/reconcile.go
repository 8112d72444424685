package attach

import (
	"fmt"
	"strings"

	"kinbridge/internal/kintone"
)

// Mode selects how a new file is combined with a record's existing files.
type Mode string

const (
	ModeAppend  Mode = "append"
	ModeReplace Mode = "replace"
)

// ParseMode accepts "append" or "replace" (case-insensitive).
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("invalid attach mode %q", raw)
	}
}

// ModeFromAppend maps the boolean append setting to a Mode.
func ModeFromAppend(appendMode bool) Mode {
	if appendMode {
		return ModeAppend
	}
	return ModeReplace
}

// Merge computes the new value of a file field. Append keeps existing entries
// that carry a file key, in order, and adds newRef last; duplicates are kept.
// Replace yields only newRef. Only file keys are written back.
func Merge(mode Mode, existing []kintone.FileRef, newRef kintone.FileRef) []kintone.FileRef {
	next := kintone.FileRef{FileKey: newRef.FileKey}
	if mode != ModeAppend {
		return []kintone.FileRef{next}
	}

	out := make([]kintone.FileRef, 0, len(existing)+1)
	for _, ref := range existing {
		key := strings.TrimSpace(ref.FileKey)
		if key == "" {
			continue
		}
		out = append(out, kintone.FileRef{FileKey: key})
	}
	return append(out, next)
}
