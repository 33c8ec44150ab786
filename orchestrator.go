package main

import (
	"context"
	"log/slog"
)

// ContentFetcher retrieves a normalized content snapshot for one URL.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*ContentSnapshot, error)
}

// Composer produces structured post content from one snapshot.
type Composer interface {
	Compose(ctx context.Context, snapshot *ContentSnapshot, sourceURL string) (*ComposedPost, error)
}

// Materializer turns an image directive into a stored artifact. It never
// fails; a placeholder stands in when generation does.
type Materializer interface {
	Materialize(ctx context.Context, composed *ComposedPost) ImageArtifact
}

// BatchOrchestrator drives the fetch → compose → materialize pipeline
// sequentially over a URL list, isolating per-item failures.
type BatchOrchestrator struct {
	fetcher      ContentFetcher
	composer     Composer
	materializer Materializer
	pacer        Pacer
}

func NewBatchOrchestrator(f ContentFetcher, c Composer, m Materializer, p Pacer) *BatchOrchestrator {
	return &BatchOrchestrator{
		fetcher:      f,
		composer:     c,
		materializer: m,
		pacer:        p,
	}
}

// Run processes every URL in order. Each URL yields exactly one outcome:
// a Post on success, a ProcessingError on failure. There is no early abort
// and no retry; a pacing delay separates successive items.
func (o *BatchOrchestrator) Run(ctx context.Context, urls []string) BatchResult {
	posts := make([]Post, 0, len(urls))
	var errs []ProcessingError

	for i, url := range urls {
		if i > 0 {
			if err := o.pacer.Wait(ctx); err != nil {
				slog.WarnContext(ctx, "pacing interrupted", "err", err)
			}
		}

		slog.InfoContext(ctx, "processing url", "position", i+1, "total", len(urls), "url", url)
		post, err := o.processOne(ctx, i, url)
		if err != nil {
			slog.WarnContext(ctx, "url failed", "url", url, "err", err)
			errs = append(errs, ProcessingError{URL: url, Message: err.Error()})
			continue
		}
		posts = append(posts, *post)
	}

	return BatchResult{
		Posts:          posts,
		Errors:         errs,
		TotalProcessed: len(urls),
		SuccessCount:   len(posts),
		ErrorCount:     len(errs),
	}
}

func (o *BatchOrchestrator) processOne(ctx context.Context, index int, url string) (*Post, error) {
	snapshot, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	composed, err := o.composer.Compose(ctx, snapshot, url)
	if err != nil {
		return nil, err
	}

	artifact := o.materializer.Materialize(ctx, composed)

	return &Post{
		SequenceID: index + 1,
		URL:        url,
		SourceURL:  url,
		Caption:    composed.Caption,
		Hashtags:   composed.Hashtags,
		ImageURL:   artifact.URL,
		Status:     StatusReadyToPost,
	}, nil
}
