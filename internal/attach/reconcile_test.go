package attach

import (
	"reflect"
	"testing"

	"kinbridge/internal/kintone"
)

func keysOf(files []kintone.FileRef) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.FileKey)
	}
	return out
}

func TestMerge(t *testing.T) {
	newRef := kintone.FileRef{FileKey: "C", Name: "c.pdf"}
	tests := []struct {
		name     string
		mode     Mode
		existing []kintone.FileRef
		want     []string
	}{
		{name: "append to empty", mode: ModeAppend, want: []string{"C"}},
		{
			name:     "append keeps order",
			mode:     ModeAppend,
			existing: []kintone.FileRef{{FileKey: "A"}, {FileKey: "B"}},
			want:     []string{"A", "B", "C"},
		},
		{
			name:     "append drops entries without key",
			mode:     ModeAppend,
			existing: []kintone.FileRef{{FileKey: "A"}, {Name: "broken.pdf"}, {FileKey: "  "}},
			want:     []string{"A", "C"},
		},
		{
			name:     "append keeps duplicates",
			mode:     ModeAppend,
			existing: []kintone.FileRef{{FileKey: "C"}},
			want:     []string{"C", "C"},
		},
		{
			name:     "replace",
			mode:     ModeReplace,
			existing: []kintone.FileRef{{FileKey: "A"}, {FileKey: "B"}},
			want:     []string{"C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.mode, tt.existing, newRef)
			if !reflect.DeepEqual(keysOf(got), tt.want) {
				t.Fatalf("got %v, want %v", keysOf(got), tt.want)
			}
			for _, f := range got {
				if f.Name != "" || f.ContentType != "" || f.Size != "" {
					t.Fatalf("expected only file keys, got %#v", f)
				}
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Replace "); err != nil || m != ModeReplace {
		t.Fatalf("unexpected mode %q err %v", m, err)
	}
	if _, err := ParseMode("merge"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if ModeFromAppend(true) != ModeAppend || ModeFromAppend(false) != ModeReplace {
		t.Fatal("unexpected mode mapping")
	}
}

func TestStateFlags(t *testing.T) {
	for _, s := range []State{StateAttached, StateUploadFailed, StateAttachFailed} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	if StateUploaded.Terminal() || StateUploaded.Failed() {
		t.Fatal("uploaded is neither terminal nor failed")
	}
	if _, ok := ParseState("bogus"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
}
