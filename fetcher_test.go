package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	page   renderedPage
	err    error
	gotURL string
}

func (s *stubRenderer) Render(_ context.Context, url string) (renderedPage, error) {
	s.gotURL = url
	return s.page, s.err
}

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Fallback Title</title>
	<meta name="description" content="Meta description here">
	<meta property="og:description" content="OG description here">
	<meta property="og:image" content="https://cdn.example/cover.jpg">
</head>
<body>
	<nav>Site navigation that should not appear</nav>
	<main>
		<h1>Article Heading</h1>
		<p>The article body text lives here.</p>
	</main>
	<footer>Footer junk</footer>
</body>
</html>`

func TestFetchExtractsSnapshot(t *testing.T) {
	r := &stubRenderer{page: renderedPage{Title: "Rendered Title", HTML: articleHTML}}
	f := NewPageFetcher(r, 3000)

	snapshot, err := f.Fetch(context.Background(), "https://a.example/post")
	require.NoError(t, err)

	assert.Equal(t, "https://a.example/post", r.gotURL)
	assert.Equal(t, "Rendered Title", snapshot.Title)
	assert.Equal(t, "Meta description here", snapshot.Description)
	assert.Equal(t, "https://cdn.example/cover.jpg", snapshot.ImageHint)
	assert.Contains(t, snapshot.BodyExcerpt, "Article Heading")
	assert.Contains(t, snapshot.BodyExcerpt, "The article body text lives here.")
	assert.NotContains(t, snapshot.BodyExcerpt, "Site navigation")
	assert.NotContains(t, snapshot.BodyExcerpt, "Footer junk")
}

func TestFetchTitleFallsBackToTitleTag(t *testing.T) {
	r := &stubRenderer{page: renderedPage{Title: "  ", HTML: articleHTML}}
	f := NewPageFetcher(r, 3000)

	snapshot, err := f.Fetch(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "Fallback Title", snapshot.Title)
}

func TestFetchDescriptionFallsBackToOpenGraph(t *testing.T) {
	html := `<html><head>
		<meta property="og:description" content="OG only">
	</head><body><p>text</p></body></html>`
	r := &stubRenderer{page: renderedPage{Title: "T", HTML: html}}
	f := NewPageFetcher(r, 3000)

	snapshot, err := f.Fetch(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "OG only", snapshot.Description)
}

func TestFetchFallsBackToBody(t *testing.T) {
	html := `<html><body><p>No content root on this page.</p></body></html>`
	r := &stubRenderer{page: renderedPage{Title: "T", HTML: html}}
	f := NewPageFetcher(r, 3000)

	snapshot, err := f.Fetch(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Contains(t, snapshot.BodyExcerpt, "No content root on this page.")
}

func TestFetchTruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 500)
	html := "<html><body><main><p>" + long + "</p></main></body></html>"
	r := &stubRenderer{page: renderedPage{Title: "T", HTML: html}}
	f := NewPageFetcher(r, 100)

	snapshot, err := f.Fetch(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(snapshot.BodyExcerpt)), 100)
	assert.NotEmpty(t, snapshot.BodyExcerpt)
}

func TestFetchWrapsRenderFailure(t *testing.T) {
	renderErr := errors.New("tab crashed")
	r := &stubRenderer{err: renderErr}
	f := NewPageFetcher(r, 3000)

	_, err := f.Fetch(context.Background(), "https://a.example/broken")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "https://a.example/broken", fetchErr.URL)
	assert.ErrorIs(t, err, renderErr)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "toolong", 4, "tool"},
		{"multibyte safe", "héllo wörld", 6, "héllo "},
		{"zero limit returns all", "anything", 0, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.limit))
		})
	}
}
