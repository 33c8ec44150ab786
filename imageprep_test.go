package main

import (
	"bytes"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitPlatformBand(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"large square scales down", 2000, 2000, 1080, 1080},
		{"tiny square scales up", 100, 100, 566, 566},
		{"portrait max unchanged", 1080, 1350, 1080, 1350},
		{"landscape scales to max width", 4000, 3000, 1080, 810},
		{"tall portrait scales to max height", 1500, 3000, 675, 1350},
		{"legal size unchanged", 800, 800, 800, 800},
		{"narrow legal width upscaled to min height", 400, 400, 566, 566},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitPlatformBand(tt.w, tt.h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFitPlatformBandPreservesAspect(t *testing.T) {
	w, h := fitPlatformBand(3840, 2160)
	assert.InDelta(t, 3840.0/2160.0, float64(w)/float64(h), 0.01)
}

func TestPrepareImage(t *testing.T) {
	prepared, err := prepareImage(jpegBytes(t, 2000, 2000))
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(prepared))
	require.NoError(t, err)
	assert.Equal(t, 1080, img.Bounds().Dx())
	assert.Equal(t, 1080, img.Bounds().Dy())

	// JPEG magic bytes.
	require.GreaterOrEqual(t, len(prepared), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, prepared[:2])
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, err := prepareImage([]byte("not an image"))
	require.Error(t, err)
}
