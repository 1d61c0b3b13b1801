package domain

// RawDocument represents the uploaded bytes of a single file.
// It is the input to normalisation.
type RawDocument struct {
	// Filename is the client-supplied file name.
	Filename string

	// MIMEType is the resolved content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains upload-specific key-value pairs.
	Metadata map[string]any
}
