package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

func normalise(t *testing.T, filename, body string) domain.Document {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Filename: filename,
		MIMEType: "text/html",
		Content:  []byte(body),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result.Document
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	assert.Contains(t, mimeTypes, "text/html")
	assert.Contains(t, mimeTypes, "application/xhtml+xml")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	doc := normalise(t, "page.html", `<html><head><title>Barcelona Tips</title>
<style>p { color: red }</style><script>var x = 1;</script></head>
<body><nav><a href="/">Home</a></nav>
<h1>Sagrada Família</h1>
<p>Book   tickets
 online.</p>
<ul><li>Park Güell</li><li><p>La Boqueria</p></li></ul>
</body></html>`)

	assert.Equal(t, "Barcelona Tips", doc.Title)
	assert.Equal(t, "Sagrada Família\nBook tickets\nonline.\nPark Güell\nLa Boqueria", doc.Content)
	assert.NotContains(t, doc.Content, "var x")
	assert.NotContains(t, doc.Content, "Home")
	assert.Equal(t, "html", doc.Metadata["format"])
}

func TestNormalise_PrefersMainContent(t *testing.T) {
	doc := normalise(t, "article.html", `<body><aside><p>Advert</p></aside>
<main><p>Main text</p></main></body>`)

	assert.Equal(t, "Main text", doc.Content)
}

func TestNormalise_TitleFallbacks(t *testing.T) {
	t.Run("first heading", func(t *testing.T) {
		doc := normalise(t, "x.html", `<body><h1>Oslo</h1><p>Fjords</p></body>`)
		assert.Equal(t, "Oslo", doc.Title)
	})

	t.Run("filename", func(t *testing.T) {
		doc := normalise(t, "oslo_day-trips.html", `<body><p>Fjords</p></body>`)
		assert.Equal(t, "oslo day trips", doc.Title)
	})
}

func TestNormalise_TextWithoutBlocks(t *testing.T) {
	doc := normalise(t, "bare.html", `<body><div>Just a   div</div></body>`)
	assert.Equal(t, "Just a div", doc.Content)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
