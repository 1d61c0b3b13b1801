// Package plaintext provides the fallback Normaliser for plain text files.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normaliser accepts UTF-8 text as is, apart from dropping a byte order
// mark and converting CRLF and CR line endings to LF.
type Normaliser struct{}

// New returns the plain text normaliser.
func New() *Normaliser { return &Normaliser{} }

func (n *Normaliser) SupportedMIMETypes() []string { return []string{"text/plain"} }

// Priority is low so richer normalisers win shared MIME types.
func (n *Normaliser) Priority() int { return 5 }

func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	body := bytes.TrimPrefix(raw.Content, utf8BOM)
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, raw.Filename)
	}

	title, _ := raw.Metadata["title"].(string)
	doc := normalisers.NewDocument(raw, title, lineEndings.Replace(string(body)), "text")
	return &driven.NormaliseResult{Document: doc}, nil
}
