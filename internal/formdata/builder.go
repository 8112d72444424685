// Package formdata builds multipart/form-data bodies whose file part keeps a
// UTF-8 filename readable by both legacy and RFC 8187 aware receivers.
package formdata

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
)

const (
	// DefaultContentType is used when a part declares no media type.
	DefaultContentType = "application/octet-stream"

	// FilePartName is the form name of the file part.
	FilePartName = "file"

	boundaryPrefix  = "----kinbridgeFormBoundary"
	boundaryEntropy = 16
	crlf            = "\r\n"
)

// Part is one uploaded file held in memory.
type Part struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Field is a plain text form field placed before the file part.
type Field struct {
	Name  string
	Value string
}

// Body is an encoded multipart payload ready to send.
type Body struct {
	Data        []byte
	Boundary    string
	ContentType string
}

// Build encodes part as a single-part multipart/form-data body named "file".
func Build(part Part) (Body, error) {
	return BuildForm(nil, part)
}

// BuildForm encodes fields followed by the file part.
func BuildForm(fields []Field, part Part) (Body, error) {
	boundary, err := newBoundary()
	if err != nil {
		return Body{}, err
	}

	contentType := strings.TrimSpace(part.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}
	if strings.ContainsAny(contentType, "\r\n") {
		return Body{}, fmt.Errorf("invalid content type %q", part.ContentType)
	}

	filename := Sanitize(part.Filename)

	var buf bytes.Buffer
	buf.Grow(len(part.Data) + 512)

	for _, field := range fields {
		name := ASCIIFallback(field.Name)
		if name == "" {
			return Body{}, fmt.Errorf("form field name is required")
		}
		buf.WriteString("--" + boundary + crlf)
		buf.WriteString(`Content-Disposition: form-data; name="` + name + `"` + crlf)
		buf.WriteString("Content-Type: text/plain; charset=utf-8" + crlf + crlf)
		buf.WriteString(field.Value)
		buf.WriteString(crlf)
	}

	buf.WriteString("--" + boundary + crlf)
	buf.WriteString(ContentDisposition(filename) + crlf)
	buf.WriteString("Content-Type: " + contentType + crlf + crlf)
	buf.Write(part.Data)
	buf.WriteString(crlf + "--" + boundary + "--" + crlf)

	return Body{
		Data:        buf.Bytes(),
		Boundary:    boundary,
		ContentType: mime.FormatMediaType("multipart/form-data", map[string]string{"charset": "utf-8", "boundary": boundary}),
	}, nil
}

// ContentDisposition returns the file part header carrying both the ASCII
// fallback filename and the RFC 8187 filename* parameter.
func ContentDisposition(filename string) string {
	return `Content-Disposition: form-data; name="` + FilePartName + `"; filename="` +
		ASCIIFallback(filename) + `"; filename*=` + EncodeExtended(filename)
}

func newBoundary() (string, error) {
	raw := make([]byte, boundaryEntropy)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate boundary: %w", err)
	}
	return boundaryPrefix + hex.EncodeToString(raw), nil
}
