package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kinbridge/internal/attach"
	"kinbridge/internal/auth"
)

func TestTokenInput(t *testing.T) {
	t.Run("argument", func(t *testing.T) {
		token, err := tokenInput(strings.NewReader(""), []string{"from-arg-0123456789"}, false)
		if err != nil || token != "from-arg-0123456789" {
			t.Fatalf("unexpected token %q err %v", token, err)
		}
	})

	t.Run("stdin strips newline", func(t *testing.T) {
		token, err := tokenInput(strings.NewReader("from-stdin-0123456789\n"), nil, false)
		if err != nil || token != "from-stdin-0123456789" {
			t.Fatalf("unexpected token %q err %v", token, err)
		}
	})

	t.Run("generate", func(t *testing.T) {
		token, err := tokenInput(strings.NewReader(""), nil, true)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if err := auth.ValidateToken(token); err != nil {
			t.Fatalf("generated token invalid: %v", err)
		}
	})

	t.Run("generate with argument", func(t *testing.T) {
		if _, err := tokenInput(strings.NewReader(""), []string{"x"}, true); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty stdin", func(t *testing.T) {
		if _, err := tokenInput(strings.NewReader("\n"), nil, false); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDisplayValueMasksSecrets(t *testing.T) {
	if got := displayValue("kintone.inbound_api_token", "secret", false); got != maskedValue {
		t.Fatalf("expected masked value, got %q", got)
	}
	if got := displayValue("kintone.inbound_api_token", "secret", true); got != "secret" {
		t.Fatalf("expected revealed value, got %q", got)
	}
	if got := displayValue("kintone.inbound_api_token", "", false); got != "" {
		t.Fatalf("expected empty value to stay empty, got %q", got)
	}
	if got := displayValue("listen_addr", "127.0.0.1:7480", false); got != "127.0.0.1:7480" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestReadPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "請求書.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	part, err := readPart(path, "", "")
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	if part.Filename != "請求書.pdf" || part.ContentType != "application/pdf" || string(part.Data) != "%PDF-1.4" {
		t.Fatalf("unexpected part %#v", part)
	}

	part, err = readPart(path, "renamed.bin", "application/x-custom")
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	if part.Filename != "renamed.bin" || part.ContentType != "application/x-custom" {
		t.Fatalf("expected overrides, got %#v", part)
	}

	if _, err := readPart(filepath.Join(dir, "missing"), "", ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAttemptRows(t *testing.T) {
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	table := attemptRows{{
		ID:        "a1",
		RecordID:  "42",
		State:     attach.StateAttachFailed,
		Backend:   attach.BackendDirect,
		FileName:  "a.pdf",
		FileKey:   "orphan",
		UpdatedAt: updated,
		Error:     strings.Repeat("x", 100),
	}}.Table()

	if len(table.Rows) != 1 || len(table.Rows[0]) != len(table.Header) {
		t.Fatalf("unexpected table %#v", table)
	}
	row := table.Rows[0]
	if row[2] != "attach_failed" || row[5] != "orphan" || row[6] != "2024-05-01T09:00:00Z" {
		t.Fatalf("unexpected row %v", row)
	}
	if n := len([]rune(row[7])); n != 60 {
		t.Fatalf("expected truncated error of 60 runes, got %d", n)
	}
}
