package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareOnWhite(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x >= 16 && x < 48 && y >= 16 && y < 48 {
				img.Set(x, y, color.RGBA{R: 200, G: 20, B: 20, A: 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func uniformImage(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestLocalMattingRemovesFlatBackground(t *testing.T) {
	out, err := NewLocalMattingEngine().Matte(context.Background(), squareOnWhite(t))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, pngMagic))

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	_, _, _, cornerAlpha := img.At(1, 1).RGBA()
	_, _, _, centerAlpha := img.At(32, 32).RGBA()
	assert.Equal(t, uint32(0), cornerAlpha)
	assert.Equal(t, uint32(0xffff), centerAlpha)
}

func TestLocalMattingRejectsUniformImage(t *testing.T) {
	_, err := NewLocalMattingEngine().Matte(context.Background(), uniformImage(t))
	assert.Error(t, err)
}

func TestLocalMattingRejectsGarbage(t *testing.T) {
	_, err := NewLocalMattingEngine().Matte(context.Background(), []byte("definitely not an image"))
	assert.Error(t, err)
}

type failingEngine struct{ panics bool }

func (f failingEngine) Name() string { return "failing" }

func (f failingEngine) Matte(ctx context.Context, data []byte) ([]byte, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New("engine down")
}

type rawEngine struct{}

func (rawEngine) Name() string { return "raw" }

func (rawEngine) Matte(ctx context.Context, data []byte) ([]byte, error) {
	return []byte("GIF89a"), nil
}

func TestMattingChainFallsThroughToNextEngine(t *testing.T) {
	chain := &MattingChain{Engines: []MattingEngine{failingEngine{}, failingEngine{panics: true}, NewLocalMattingEngine()}}

	result := chain.RemoveBackground(context.Background(), squareOnWhite(t))

	assert.True(t, result.Removed)
	assert.Equal(t, "local", result.Engine)
	assert.True(t, bytes.HasPrefix(result.Data, pngMagic))
}

func TestMattingChainReturnsOriginalWhenAllFail(t *testing.T) {
	original := []byte("corrupt")
	chain := &MattingChain{Engines: []MattingEngine{failingEngine{}, rawEngine{}, NewLocalMattingEngine()}}

	result := chain.RemoveBackground(context.Background(), original)

	assert.False(t, result.Removed)
	assert.Equal(t, original, result.Data)
}

func TestRembgHTTPEngine(t *testing.T) {
	var gotAlphaMatting, gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/remove", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotAlphaMatting = r.FormValue("a")
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		w.Header().Set("Content-Type", "image/png")
		w.Write(append(append([]byte{}, pngMagic...), 0x00))
	}))
	defer server.Close()

	out, err := NewRembgHTTPEngine(server.URL+"/").Matte(context.Background(), []byte("jpeg bytes"))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, pngMagic))
	assert.Equal(t, "true", gotAlphaMatting)
	assert.Equal(t, "jpeg bytes", gotFile)
}

func TestRembgHTTPEngineServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewRembgHTTPEngine(server.URL).Matte(context.Background(), []byte("jpeg bytes"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNormalizePhotoJPEG(t *testing.T) {
	out, err := NormalizePhotoJPEG(squareOnWhite(t))
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, err = NormalizePhotoJPEG([]byte("nope"))
	assert.Error(t, err)
}
