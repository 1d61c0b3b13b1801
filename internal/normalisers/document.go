package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// NewDocument builds a normalised document for raw with a fresh ID.
// The MIME type and format name are recorded in Metadata.
func NewDocument(raw *domain.RawDocument, title, content, format string) domain.Document {
	metadata := CopyMetadata(raw.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = format

	if title == "" {
		title = TitleFromFilename(raw.Filename)
	}

	return domain.Document{
		ID:         uuid.New().String(),
		Filename:   raw.Filename,
		Size:       int64(len(raw.Content)),
		Title:      title,
		Content:    content,
		Metadata:   metadata,
		UploadedAt: time.Now().UTC(),
	}
}

// TitleFromFilename derives a human-readable title from a file name.
func TitleFromFilename(name string) string {
	filename := filepath.Base(name)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// CopyMetadata creates a shallow copy of metadata.
func CopyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
