package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

var ErrPhotoAnalysisUnavailable = errors.New("GEMINI_API_KEY not configured")

// PhotoEnhancement is a prompt rewritten around the person in a photo.
type PhotoEnhancement struct {
	EnhancedPrompt string
	Analysis       string
}

type PhotoAnalyzer interface {
	EnhanceWithPhoto(ctx context.Context, photo []byte, basePrompt string) (*PhotoEnhancement, error)
}

// DecodePhotoPayload accepts raw base64 or a data URL.
func DecodePhotoPayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if _, after, ok := strings.Cut(payload, "base64,"); ok {
		payload = after
	}
	if payload == "" {
		return nil, fmt.Errorf("empty photo payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode photo base64: %w", err)
	}
	return data, nil
}

func photoAnalysisPrompt(clothingPrompt string) string {
	return fmt.Sprintf(`Analyze this person's photo and describe:
1. Body type and build
2. Skin tone
3. Face shape
4. Overall style

Then suggest how to best showcase these clothing items on this person:
%s

Provide a detailed English prompt for AI image generation.`, clothingPrompt)
}

// GeminiPhotoAnalyzer merges what a vision model sees in the user's photo
// into the outfit prompt.
type GeminiPhotoAnalyzer struct {
	Models  ContentGenerator
	Model   string
	Timeout time.Duration
}

func NewGeminiPhotoAnalyzer(models ContentGenerator, model string, timeout time.Duration) *GeminiPhotoAnalyzer {
	return &GeminiPhotoAnalyzer{Models: models, Model: modelOrDefault(model, Flash25), Timeout: timeout}
}

func (g *GeminiPhotoAnalyzer) EnhanceWithPhoto(ctx context.Context, photo []byte, basePrompt string) (*PhotoEnhancement, error) {
	if g.Models == nil {
		return nil, ErrPhotoAnalysisUnavailable
	}
	jpeg, err := NormalizePhotoJPEG(photo)
	if err != nil {
		return nil, fmt.Errorf("photo analysis failed: %w", err)
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	response, err := g.Models.GenerateContent(ctx, g.Model,
		userContent(&genai.Part{Text: photoAnalysisPrompt(basePrompt)}, inlineImagePart(jpeg, "image/jpeg")),
		&genai.GenerateContentConfig{CandidateCount: 1})
	if err != nil {
		return nil, fmt.Errorf("photo analysis failed: %w", err)
	}
	text, err := GetFirstCandidateText(response)
	if err != nil {
		return nil, fmt.Errorf("photo analysis failed: %w", err)
	}
	return &PhotoEnhancement{EnhancedPrompt: text, Analysis: text}, nil
}
