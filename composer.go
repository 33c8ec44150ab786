package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// CaptionComposer asks the caption model for a structured Instagram post
// from one content snapshot.
type CaptionComposer struct {
	prompt       func(systemPrompt, userPrompt string) (string, error)
	systemPrompt string
	userTemplate string
	captionLimit int
}

func NewCaptionComposer(apiKey string, cfg *Config) *CaptionComposer {
	settings := types.RequestSettings{
		Model:       cfg.Settings.Composer.Model,
		MaxTokens:   cfg.Settings.Composer.MaxTokens,
		Temperature: cfg.Settings.Composer.Temperature,
	}

	return &CaptionComposer{
		prompt: func(systemPrompt, userPrompt string) (string, error) {
			response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
			if err != nil {
				return "", err
			}
			if len(response.Content) == 0 {
				return "", fmt.Errorf("no content in response")
			}
			return response.Content[0].Text, nil
		},
		systemPrompt: cfg.GetComposerSystemPrompt(),
		userTemplate: cfg.GetComposerUserPrompt(),
		captionLimit: cfg.Settings.Composer.CaptionLimit,
	}
}

// Compose generates caption, hashtags, and an image directive for the
// snapshot. Transport failures surface as *GenerationAPIError; responses
// that don't contain the required structure surface as
// *GenerationParseError.
func (c *CaptionComposer) Compose(_ context.Context, snapshot *ContentSnapshot, sourceURL string) (*ComposedPost, error) {
	if !strings.Contains(c.userTemplate, "{{.Content}}") {
		return nil, fmt.Errorf("composer user prompt template must contain {{.Content}} variable")
	}

	userPrompt := c.userTemplate
	userPrompt = strings.ReplaceAll(userPrompt, "{{.URL}}", sourceURL)
	userPrompt = strings.ReplaceAll(userPrompt, "{{.Title}}", snapshot.Title)
	userPrompt = strings.ReplaceAll(userPrompt, "{{.Description}}", snapshot.Description)
	userPrompt = strings.ReplaceAll(userPrompt, "{{.Content}}", snapshot.BodyExcerpt)

	raw, err := c.prompt(c.systemPrompt, userPrompt)
	if err != nil {
		return nil, &GenerationAPIError{Err: err}
	}

	return parseComposedPost(raw)
}

// parseComposedPost extracts the first brace-delimited JSON object from the
// raw model output, tolerating leading and trailing prose.
func parseComposedPost(raw string) (*ComposedPost, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, &GenerationParseError{Reason: "no JSON object in model response"}
	}

	var post ComposedPost
	if err := json.Unmarshal([]byte(raw[start:end+1]), &post); err != nil {
		return nil, &GenerationParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	post.Caption = strings.TrimSpace(post.Caption)
	post.Hashtags = strings.TrimSpace(post.Hashtags)
	post.ImagePrompt = strings.TrimSpace(post.ImagePrompt)

	var missing []string
	if post.Caption == "" {
		missing = append(missing, "caption")
	}
	if post.Hashtags == "" {
		missing = append(missing, "hashtags")
	}
	if post.ImagePrompt == "" {
		missing = append(missing, "imagePrompt")
	}
	if len(missing) > 0 {
		return nil, &GenerationParseError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	return &post, nil
}
