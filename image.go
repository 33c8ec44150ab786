package main

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"
)

// Generated post images are re-encoded to a fixed square resolution.
const imageSide = 1080

const placeholderName = "placeholder.jpg"

// placeholderColor is the solid fill used when image generation fails.
var placeholderColor = color.NRGBA{R: 100, G: 150, B: 200, A: 255}

// imageBackend synthesizes an image for a prompt and returns a URL the
// bytes can be downloaded from.
type imageBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// dalleBackend generates images with DALL·E 3.
type dalleBackend struct {
	client  *openai.Client
	quality string
	style   string
}

func (b *dalleBackend) Generate(ctx context.Context, prompt string) (string, error) {
	quality := b.quality
	if quality == "" {
		quality = openai.CreateImageQualityStandard
	}
	style := b.style
	if style == "" {
		style = openai.CreateImageStyleVivid
	}

	resp, err := b.client.CreateImage(ctx, openai.ImageRequest{
		Model:   openai.CreateImageModelDallE3,
		Prompt:  prompt,
		N:       1,
		Size:    openai.CreateImageSize1024x1024,
		Quality: quality,
		Style:   style,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no image in response")
	}
	return resp.Data[0].URL, nil
}

// ImageMaterializer turns an image directive into a stored artifact sized
// for the platform. It never fails: any error in the generation chain
// yields the process-wide placeholder instead.
type ImageMaterializer struct {
	backend      imageBackend
	client       *resty.Client
	outputDir    string
	publicPrefix string
	now          func() time.Time
}

func NewImageMaterializer(apiKey string, cfg *Config) *ImageMaterializer {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &ImageMaterializer{
		backend: &dalleBackend{
			client:  openai.NewClient(apiKey),
			quality: cfg.Settings.Image.Quality,
			style:   cfg.Settings.Image.Style,
		},
		client:       client,
		outputDir:    cfg.Settings.Server.ContentDir,
		publicPrefix: "/generated",
		now:          time.Now,
	}
}

// Materialize generates, downloads, and re-encodes the post's image. On any
// failure it logs and returns the placeholder artifact.
func (m *ImageMaterializer) Materialize(ctx context.Context, composed *ComposedPost) ImageArtifact {
	artifact, err := m.generate(ctx, composed)
	if err != nil {
		slog.WarnContext(ctx, "image generation failed, using placeholder", "err", err)
		return m.placeholder(ctx)
	}
	return artifact
}

func (m *ImageMaterializer) generate(ctx context.Context, composed *ComposedPost) (ImageArtifact, error) {
	prompt := composed.ImagePrompt
	if prompt == "" {
		prompt = "Create a modern, eye-catching Instagram post image for: " + truncate(composed.Caption, 200)
	}
	styled := fmt.Sprintf(
		"Create a square Instagram post image (1:1 aspect ratio). %s. Style: Modern, clean, vibrant colors, professional, social media friendly. NO text in the image.",
		prompt,
	)

	hosted, err := m.backend.Generate(ctx, styled)
	if err != nil {
		return ImageArtifact{}, fmt.Errorf("image backend: %w", err)
	}

	resp, err := m.client.R().SetContext(ctx).Get(hosted)
	if err != nil {
		return ImageArtifact{}, fmt.Errorf("downloading image: %w", err)
	}
	if resp.IsError() {
		return ImageArtifact{}, fmt.Errorf("downloading image: HTTP %d", resp.StatusCode())
	}

	img, err := imaging.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return ImageArtifact{}, fmt.Errorf("decoding image: %w", err)
	}
	square := imaging.Fill(img, imageSide, imageSide, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return ImageArtifact{}, fmt.Errorf("creating output directory: %w", err)
	}
	name := fmt.Sprintf("instagram_%d.jpg", m.now().UnixMilli())
	if err := imaging.Save(square, filepath.Join(m.outputDir, name), imaging.JPEGQuality(90)); err != nil {
		return ImageArtifact{}, fmt.Errorf("saving image: %w", err)
	}

	return ImageArtifact{
		URL:    path.Join(m.publicPrefix, name),
		Width:  imageSide,
		Height: imageSide,
	}, nil
}

// placeholder returns the shared fallback artifact, writing it on first
// use. A write failure is logged but still yields a usable reference.
func (m *ImageMaterializer) placeholder(ctx context.Context) ImageArtifact {
	target := filepath.Join(m.outputDir, placeholderName)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.MkdirAll(m.outputDir, 0755); err != nil {
			slog.WarnContext(ctx, "creating output directory for placeholder", "err", err)
		}
		img := imaging.New(imageSide, imageSide, placeholderColor)
		if err := imaging.Save(img, target, imaging.JPEGQuality(90)); err != nil {
			slog.WarnContext(ctx, "writing placeholder image", "err", err)
		}
	}

	return ImageArtifact{
		URL:    path.Join(m.publicPrefix, placeholderName),
		Width:  imageSide,
		Height: imageSide,
	}
}
