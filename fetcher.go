package main

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// contentRootSelector prefers the page's primary readable region over the
// full body.
const contentRootSelector = "main, article, .content, #content, .main"

// PageFetcher turns one URL into a ContentSnapshot via a headless render
// followed by meta/content extraction.
type PageFetcher struct {
	renderer     renderer
	converter    *md.Converter
	excerptLimit int
}

func NewPageFetcher(r renderer, excerptLimit int) *PageFetcher {
	return &PageFetcher{
		renderer:     r,
		converter:    md.NewConverter("", true, nil),
		excerptLimit: excerptLimit,
	}
}

// Fetch renders the page and extracts title, description, a bounded body
// excerpt, and a cover-image hint. All failures carry the offending URL.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (*ContentSnapshot, error) {
	page, err := f.renderer.Render(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	snapshot, err := f.extract(page)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return snapshot, nil
}

func (f *PageFetcher) extract(page renderedPage) (*ContentSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	description := metaContent(doc, "description")
	if description == "" {
		description = metaContent(doc, "og:description")
	}

	contentHTML, err := contentRootHTML(doc, page.HTML)
	if err != nil {
		return nil, err
	}

	text, err := f.converter.ConvertString(contentHTML)
	if err != nil {
		return nil, fmt.Errorf("converting content to markdown: %w", err)
	}

	return &ContentSnapshot{
		Title:       title,
		Description: description,
		BodyExcerpt: truncate(strings.TrimSpace(text), f.excerptLimit),
		ImageHint:   metaContent(doc, "og:image"),
	}, nil
}

// contentRootHTML selects the preferred content region, falling back to the
// body, then the whole document.
func contentRootHTML(doc *goquery.Document, full string) (string, error) {
	root := doc.Find(contentRootSelector).First()
	if root.Length() > 0 {
		html, err := goquery.OuterHtml(root)
		if err != nil {
			return "", fmt.Errorf("serializing content root: %w", err)
		}
		return html, nil
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		html, err := goquery.OuterHtml(body)
		if err != nil {
			return "", fmt.Errorf("serializing body: %w", err)
		}
		return html, nil
	}
	return full, nil
}

// metaContent reads a meta tag by name or property attribute.
func metaContent(doc *goquery.Document, name string) string {
	selector := fmt.Sprintf(`meta[name="%s"], meta[property="%s"]`, name, name)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// truncate bounds s to limit runes without splitting a multibyte character.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
