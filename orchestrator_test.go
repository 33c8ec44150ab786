package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	fail map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*ContentSnapshot, error) {
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	return &ContentSnapshot{Title: "title for " + url, BodyExcerpt: "body"}, nil
}

type stubComposer struct {
	fail map[string]error
}

func (c *stubComposer) Compose(_ context.Context, _ *ContentSnapshot, sourceURL string) (*ComposedPost, error) {
	if err, ok := c.fail[sourceURL]; ok {
		return nil, err
	}
	return &ComposedPost{
		Caption:     "caption for " + sourceURL,
		Hashtags:    "#tag",
		ImagePrompt: "prompt",
	}, nil
}

type stubMaterializer struct{}

func (stubMaterializer) Materialize(_ context.Context, _ *ComposedPost) ImageArtifact {
	return ImageArtifact{URL: "/generated/instagram_1.jpg", Width: 1080, Height: 1080}
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func newTestOrchestrator(fetchFail, composeFail map[string]error) (*BatchOrchestrator, *countingPacer) {
	pacer := &countingPacer{}
	o := NewBatchOrchestrator(
		&stubFetcher{fail: fetchFail},
		&stubComposer{fail: composeFail},
		stubMaterializer{},
		pacer,
	)
	return o, pacer
}

func TestRunAllSucceed(t *testing.T) {
	o, pacer := newTestOrchestrator(nil, nil)
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}

	result := o.Run(context.Background(), urls)

	require.Len(t, result.Posts, 3)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)

	for i, post := range result.Posts {
		assert.Equal(t, i+1, post.SequenceID)
		assert.Equal(t, urls[i], post.SourceURL)
		assert.Equal(t, "caption for "+urls[i], post.Caption)
		assert.Equal(t, StatusReadyToPost, post.Status)
		assert.NotEmpty(t, post.ImageURL)
	}

	// Pacing separates items; the first has nothing ahead of it.
	assert.Equal(t, 2, pacer.waits)
}

func TestRunFailedItemLeavesSequenceGap(t *testing.T) {
	fetchFail := map[string]error{
		"https://b.example": &FetchError{URL: "https://b.example", Err: context.DeadlineExceeded},
	}
	o, _ := newTestOrchestrator(fetchFail, nil)
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}

	result := o.Run(context.Background(), urls)

	require.Len(t, result.Posts, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)

	assert.Equal(t, 1, result.Posts[0].SequenceID)
	assert.Equal(t, 3, result.Posts[1].SequenceID)
	assert.Equal(t, "https://b.example", result.Errors[0].URL)
	assert.Contains(t, result.Errors[0].Message, "https://b.example")
}

func TestRunComposeFailureIsIsolated(t *testing.T) {
	composeFail := map[string]error{
		"https://a.example": &GenerationParseError{Reason: "no JSON object in model response"},
	}
	o, _ := newTestOrchestrator(nil, composeFail)

	result := o.Run(context.Background(), []string{"https://a.example", "https://b.example"})

	require.Len(t, result.Posts, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Posts[0].SequenceID)
}

func TestRunEveryURLYieldsExactlyOneOutcome(t *testing.T) {
	fetchFail := map[string]error{
		"https://b.example": &FetchError{URL: "https://b.example", Err: context.DeadlineExceeded},
		"https://d.example": &FetchError{URL: "https://d.example", Err: context.DeadlineExceeded},
	}
	o, _ := newTestOrchestrator(fetchFail, nil)
	urls := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example", "https://e.example"}

	result := o.Run(context.Background(), urls)

	assert.Equal(t, len(urls), len(result.Posts)+len(result.Errors))
	assert.Equal(t, len(urls), result.TotalProcessed)
}

func TestRunEmptyInput(t *testing.T) {
	o, pacer := newTestOrchestrator(nil, nil)

	result := o.Run(context.Background(), nil)

	assert.Empty(t, result.Posts)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.TotalProcessed)
	assert.Equal(t, 0, pacer.waits)
}
