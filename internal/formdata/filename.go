package formdata

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultFilename replaces names that sanitize to nothing.
	DefaultFilename = "upload"

	maxFilenameRunes = 255
	extendedPrefix   = "UTF-8''"
	upperHex         = "0123456789ABCDEF"
)

// Sanitize returns a display-safe filename: characters illegal in common
// filesystem paths and control characters are removed, the result is capped
// at 255 runes, and an empty result becomes DefaultFilename.
func Sanitize(name string) string {
	name = strings.ToValidUTF8(name, string(utf8.RuneError))

	var b strings.Builder
	b.Grow(len(name))
	count := 0
	for _, r := range name {
		if count == maxFilenameRunes {
			break
		}
		if isIllegalFilenameRune(r) {
			continue
		}
		b.WriteRune(r)
		count++
	}

	if b.Len() == 0 {
		return DefaultFilename
	}
	return b.String()
}

// ASCIIFallback maps every rune outside printable ASCII to '_'. Quotes and
// backslashes are mapped as well so the result is always usable inside a
// quoted header parameter.
func ASCIIFallback(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EncodeExtended renders name as an RFC 8187 ext-value with a UTF-8 charset
// and empty language tag, e.g. UTF-8''%E8%AB%8B.pdf.
func EncodeExtended(name string) string {
	name = strings.ToValidUTF8(name, string(utf8.RuneError))

	var b strings.Builder
	b.Grow(len(extendedPrefix) + len(name)*3)
	b.WriteString(extendedPrefix)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isIllegalFilenameRune(r rune) bool {
	switch r {
	case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return r < 0x20 || r == 0x7f
}

// isAttrChar reports whether c is an RFC 8187 attr-char.
func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
