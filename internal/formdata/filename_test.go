package formdata

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain ascii", raw: "invoice-2024.pdf", want: "invoice-2024.pdf"},
		{name: "keeps spaces", raw: " draft v2.txt", want: " draft v2.txt"},
		{name: "strips path syntax", raw: `C:\tmp\a/b*?.pdf`, want: "Ctmpab.pdf"},
		{name: "strips quotes and pipes", raw: `"x"<y>|z`, want: "xyz"},
		{name: "strips control characters", raw: "a\x00b\tc\x7f", want: "abc"},
		{name: "keeps unicode", raw: "請求書.pdf", want: "請求書.pdf"},
		{name: "empty", raw: "", want: DefaultFilename},
		{name: "all illegal", raw: `\/:*?"<>|`, want: DefaultFilename},
		{name: "invalid utf8", raw: "a\xffb", want: "a\uFFFDb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeTruncatesTo255Runes(t *testing.T) {
	for _, raw := range []string{
		strings.Repeat("a", 300),
		strings.Repeat("請", 256),
		strings.Repeat("a/", 400),
	} {
		got := Sanitize(raw)
		if n := utf8.RuneCountInString(got); n != 255 {
			t.Fatalf("expected 255 runes, got %d", n)
		}
	}

	exact := strings.Repeat("b", 255)
	if got := Sanitize(exact); got != exact {
		t.Fatal("expected 255-rune name to be unchanged")
	}
}

func TestASCIIFallbackMatchesSanitizedASCII(t *testing.T) {
	for _, raw := range []string{"report.pdf", "a b c.txt", "~!#$&+-.^_`.bin", "semi;colon=1.csv"} {
		sanitized := Sanitize(raw)
		if got := ASCIIFallback(sanitized); got != sanitized {
			t.Fatalf("ASCIIFallback(%q) = %q, want identical", sanitized, got)
		}
	}
}

func TestASCIIFallbackReplacesNonASCII(t *testing.T) {
	got := ASCIIFallback("請求書 2024.pdf")
	if got != "___ 2024.pdf" {
		t.Fatalf("unexpected fallback %q", got)
	}
	for i := 0; i < len(got); i++ {
		if got[i] < 0x20 || got[i] > 0x7e {
			t.Fatalf("fallback contains non printable byte %#x", got[i])
		}
	}

	if got := ASCIIFallback(`a"b\c`); got != "a_b_c" {
		t.Fatalf("expected quotes and backslashes replaced, got %q", got)
	}
}

func TestEncodeExtendedRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"請求書.pdf",
		"naïve résumé.docx",
		"emoji 📎 file (1).png",
		"percent %20 and plus+sign.txt",
		"it's*here.txt",
	} {
		encoded := EncodeExtended(raw)
		if !strings.HasPrefix(encoded, "UTF-8''") {
			t.Fatalf("expected UTF-8'' prefix, got %q", encoded)
		}
		value := strings.TrimPrefix(encoded, "UTF-8''")
		for i := 0; i < len(value); i++ {
			c := value[i]
			if c != '%' && !isAttrChar(c) {
				t.Fatalf("encoded value %q contains non attr-char %q", value, c)
			}
		}
		decoded, err := url.PathUnescape(value)
		if err != nil {
			t.Fatalf("unescape %q: %v", value, err)
		}
		if decoded != raw {
			t.Fatalf("round trip mismatch: got %q, want %q", decoded, raw)
		}
	}
}

func TestEncodeExtendedKnownValue(t *testing.T) {
	if got := EncodeExtended("請求書.pdf"); got != "UTF-8''%E8%AB%8B%E6%B1%82%E6%9B%B8.pdf" {
		t.Fatalf("unexpected encoding %q", got)
	}
}
