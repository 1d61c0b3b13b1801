// Package markdown provides a Normaliser for Markdown travel notes.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	fencePattern      = regexp.MustCompile("(?m)^[ \\t]*```[^\\n]*$")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	imagePattern      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	blockquotePattern = regexp.MustCompile(`(?m)^>[ \t]*`)
	rulePattern       = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	bulletPattern     = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedPattern   = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	emphasisPattern   = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a markdown document to plain text.
// Formatting is removed; code and link text are kept.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := string(raw.Content)
	doc := normalisers.NewDocument(raw, extractMarkdownTitle(rawContent), stripMarkdown(rawContent), "markdown")

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractMarkdownTitle returns the first H1 heading, or "".
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common markdown formatting for plain text content.
func stripMarkdown(content string) string {
	content = fencePattern.ReplaceAllString(content, "")
	content = inlineCodePattern.ReplaceAllString(content, "$1")
	content = imagePattern.ReplaceAllString(content, "")
	content = linkPattern.ReplaceAllString(content, "$1")
	content = headingPattern.ReplaceAllString(content, "")
	content = blockquotePattern.ReplaceAllString(content, "")
	content = rulePattern.ReplaceAllString(content, "")
	content = bulletPattern.ReplaceAllString(content, "")
	content = numberedPattern.ReplaceAllString(content, "")
	content = emphasisPattern.ReplaceAllString(content, "$2")
	content = blankRunPattern.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
