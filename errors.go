package main

import "fmt"

// InputFormatError reports an upload that cannot yield a URL list. The
// batch is never attempted when this occurs.
type InputFormatError struct {
	Reason string
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("input format: %s", e.Reason)
}

// FetchError reports a failed page fetch for a single URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to scrape %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// GenerationAPIError reports a transport or auth failure from the caption
// model backend. It is not retried.
type GenerationAPIError struct {
	Err error
}

func (e *GenerationAPIError) Error() string {
	return fmt.Sprintf("caption generation failed: %v", e.Err)
}

func (e *GenerationAPIError) Unwrap() error { return e.Err }

// GenerationParseError reports malformed structured output from the caption
// model. Malformed output is a hard failure for that item.
type GenerationParseError struct {
	Reason string
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("parsing generated post: %s", e.Reason)
}

// AuthError reports a failed or missing platform authentication.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// InvalidCodeError reports a rejected two-factor verification code. The
// session stays in the awaiting-verification state.
type InvalidCodeError struct{}

func (e *InvalidCodeError) Error() string { return "invalid verification code" }

// RateLimitError reports a posting attempt rejected by the platform for
// exceeding the allowed posting frequency.
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string { return e.Reason }
