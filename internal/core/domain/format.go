package domain

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies a supported document format.
type Format string

// Supported document formats.
const (
	FormatPDF      Format = "pdf"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
)

var formatsByExtension = map[string]Format{
	".pdf":      FormatPDF,
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".docx":     FormatDOCX,
	".html":     FormatHTML,
	".htm":      FormatHTML,
}

var formatsByMIME = map[string]Format{
	"application/pdf": FormatPDF,
	"text/plain":      FormatText,
	"text/markdown":   FormatMarkdown,
	"text/x-markdown": FormatMarkdown,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"text/html": FormatHTML,
}

// MIMEType returns the canonical MIME type used to select a normaliser.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatText:
		return "text/plain"
	case FormatMarkdown:
		return "text/markdown"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		return "text/html"
	default:
		return ""
	}
}

// ResolveFormat decides the format of an upload.
//
// The filename extension is authoritative whenever the filename has one:
// a recognised extension selects its format, an unrecognised one is
// rejected. The declared MIME type is consulted only for filenames
// without an extension. Parameters such as "; charset=utf-8" are ignored.
func ResolveFormat(filename, mimeType string) (Format, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if f, ok := formatsByExtension[ext]; ok {
			return f, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if f, ok := formatsByMIME[mediaType]; ok {
		return f, nil
	}
	if mediaType == "" {
		return "", fmt.Errorf("%w: no extension or content type", ErrUnsupportedFormat)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
}
