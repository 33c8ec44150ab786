package main

import (
	"bytes"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// Instagram feed image constraints.
const (
	minPostWidth  = 320
	maxPostWidth  = 1080
	minPostHeight = 566
	maxPostHeight = 1350
)

// fitPlatformBand scales dimensions into the platform's legal resolution
// band, preserving aspect ratio. Oversized images are scaled down first,
// then undersized ones scaled up.
func fitPlatformBand(width, height int) (int, int) {
	aspect := float64(width) / float64(height)
	w, h := width, height

	if w > maxPostWidth || h > maxPostHeight {
		if aspect > float64(maxPostWidth)/float64(maxPostHeight) {
			w = maxPostWidth
			h = int(math.Round(float64(maxPostWidth) / aspect))
		} else {
			h = maxPostHeight
			w = int(math.Round(float64(maxPostHeight) * aspect))
		}
	}

	if w < minPostWidth || h < minPostHeight {
		if aspect > float64(minPostWidth)/float64(minPostHeight) {
			h = minPostHeight
			w = int(math.Round(float64(minPostHeight) * aspect))
		} else {
			w = minPostWidth
			h = int(math.Round(float64(minPostWidth) / aspect))
		}
	}

	return w, h
}

// prepareImage re-encodes raw image bytes into a platform-legal JPEG.
func prepareImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := fitPlatformBand(bounds.Dx(), bounds.Dy())
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}
