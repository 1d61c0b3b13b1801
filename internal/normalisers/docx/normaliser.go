// Package docx provides a Normaliser for Word (.docx) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML word processing MIME type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text from word/document.xml, including
// text inside tables and hyperlinks. The title comes from docProps/core.xml.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a docx archive: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	content, err := extractText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse %s: %v", domain.ErrInvalidInput, raw.Filename, documentPart, err)
	}

	doc := normalisers.NewDocument(raw, extractTitle(reader), content, "docx")
	return &driven.NormaliseResult{Document: doc}, nil
}

// readPart returns the bytes of a named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

// extractText walks the WordprocessingML token stream. Text runs (w:t)
// are concatenated, w:tab and w:br become whitespace and each paragraph
// (w:p) ends a line.
func extractText(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(s)
		}
		line.Reset()
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteString("\t")
			case "br", "cr":
				line.WriteString("\n")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(el)
			}
		}
	}
	flush()

	return out.String(), nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle returns the document title property, or "".
func extractTitle(reader *zip.Reader) string {
	data, err := readPart(reader, corePart)
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
