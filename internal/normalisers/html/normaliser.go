package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	// dropSelector matches elements that never carry readable content.
	dropSelector = "script, style, noscript, template, iframe, svg, nav, header, footer"

	// blockSelector matches elements whose text becomes one line each.
	blockSelector = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, blockquote, pre, td, th, figcaption"
)

var spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML page to plain text, one line per block element.
// The title comes from <title>, then the first <h1>.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	title := cleanText(page.Find("title").First().Text())
	if title == "" {
		title = cleanText(page.Find("h1").First().Text())
	}

	page.Find(dropSelector).Remove()

	doc := normalisers.NewDocument(raw, title, extractText(page), "html")
	return &driven.NormaliseResult{Document: doc}, nil
}

// extractText collects block-level text from <main> or <article> when
// present, otherwise from the whole body.
func extractText(page *goquery.Document) string {
	root := page.Find("main, article")
	if root.Length() == 0 {
		root = page.Find("body")
	}
	if root.Length() == 0 {
		root = page.Selection
	}

	var lines []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (p inside li) are emitted by the innermost element.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := cleanText(s.Text()); text != "" {
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		return cleanText(root.Text())
	}
	return strings.Join(lines, "\n")
}

// cleanText collapses horizontal whitespace and trims blank lines.
func cleanText(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
