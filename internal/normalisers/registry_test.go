package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	mimes    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.mimes }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Document: NewDocument(raw, s.name, string(raw.Content), s.name)}, nil
}

func TestRegistry_PrefersHighestPriority(t *testing.T) {
	low := &stubNormaliser{name: "fallback", mimes: []string{"text/plain"}, priority: 5}
	high := &stubNormaliser{name: "specific", mimes: []string{"text/plain"}, priority: 50}
	r := NewRegistry(low, high)

	res, err := r.Normalise(context.Background(), &domain.RawDocument{
		Filename: "a.txt",
		MIMEType: "text/plain",
		Content:  []byte("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "specific", res.Document.Title)
}

func TestRegistry_CaseInsensitiveMIME(t *testing.T) {
	r := NewRegistry(&stubNormaliser{name: "md", mimes: []string{"text/markdown"}, priority: 50})

	_, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "Text/Markdown"})
	assert.NoError(t, err)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	r := NewRegistry(
		&stubNormaliser{mimes: []string{"text/plain"}},
		&stubNormaliser{mimes: []string{"application/pdf", "text/plain"}},
	)
	assert.Equal(t, []string{"application/pdf", "text/plain"}, r.SupportedMIMETypes())
}

func TestNewDocument(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "paris_guide-2024.txt",
		MIMEType: "text/plain",
		Content:  []byte("abc"),
		Metadata: map[string]any{"origin": "upload"},
	}

	doc := NewDocument(raw, "", "abc", "text")

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "paris guide 2024", doc.Title)
	assert.Equal(t, int64(3), doc.Size)
	assert.Equal(t, "upload", doc.Metadata["origin"])
	assert.Equal(t, "text/plain", doc.Metadata["mime_type"])
	assert.Equal(t, "text", doc.Metadata["format"])
	assert.False(t, doc.UploadedAt.IsZero())

	// The raw metadata is not aliased.
	_, leaked := raw.Metadata["format"]
	assert.False(t, leaked)
}

func TestCopyMetadata(t *testing.T) {
	assert.Nil(t, CopyMetadata(nil))

	src := map[string]any{"k": 1}
	dst := CopyMetadata(src)
	dst["k"] = 2
	assert.Equal(t, 1, src["k"])
}
