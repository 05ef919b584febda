package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"wardrobeapi/config"
)

// LLMModelName enumerates the Google models this service talks to.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
	Flash25Image
	Imagen3
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash25Image:
		return "gemini-2.5-flash-image-preview"
	case Flash20:
		return "gemini-2.0-flash"
	case Imagen3:
		return "imagen-3.0-generate-002"
	default:
		return "gemini-2.0-flash"
	}
}

func modelOrDefault(configured string, fallback LLMModelName) string {
	if configured != "" {
		return configured
	}
	return fallback.String()
}

func floatPointer(f float32) *float32 {
	return &f
}

// ContentGenerator is the slice of the genai Models service used here;
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type ImagesGenerator interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GoogleClients holds the shared genai clients. A nil field means the
// matching credentials were not configured.
type GoogleClients struct {
	Gemini *genai.Client
	Vertex *genai.Client
}

func NewGoogleClients(ctx context.Context, cfg config.AIConfig) GoogleClients {
	var clients GoogleClients
	if cfg.HasGemini() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Println("[GenAI] Gemini client init failed:", err)
		} else {
			clients.Gemini = client
		}
	} else {
		fmt.Println("[GenAI] GEMINI_API_KEY not set, Gemini features degrade to defaults")
	}
	if cfg.HasVertex() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  cfg.GCPProjectID,
			Location: cfg.GCPLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			fmt.Println("[GenAI] Vertex client init failed:", err)
		} else {
			clients.Vertex = client
		}
	}
	return clients
}

func (g GoogleClients) GeminiModels() ContentGenerator {
	if g.Gemini == nil {
		return nil
	}
	return g.Gemini.Models
}

func (g GoogleClients) VertexImages() ImagesGenerator {
	if g.Vertex == nil {
		return nil
	}
	return g.Vertex.Models
}

func inlineImagePart(data []byte, mimeType string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}
}

func userContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}

// checkPromptFeedback reports prompts blocked before any candidate was produced.
func checkPromptFeedback(result *genai.GenerateContentResponse) error {
	if result == nil {
		return fmt.Errorf("empty model response")
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("content violation: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}
	return nil
}

func GetAllInlineImages(result *genai.GenerateContentResponse) ([]*genai.Blob, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot read images from empty response")
	}

	var images []*genai.Blob
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			inlineData := part.InlineData
			if inlineData != nil && strings.HasPrefix(inlineData.MIMEType, "image/") && len(inlineData.Data) > 0 {
				images = append(images, inlineData)
			}
		}
	}
	return images, nil
}

// GetFirstCandidateText returns the non-thought text of the first candidate.
func GetFirstCandidateText(result *genai.GenerateContentResponse) (string, error) {
	if err := checkPromptFeedback(result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	c := result.Candidates[0]
	for _, rating := range c.SafetyRatings {
		if rating.Blocked {
			return "", fmt.Errorf("content violation: blocked for %s", rating.Category)
		}
	}
	if c.Content == nil {
		return "", fmt.Errorf("candidate has no content, finish reason %s", c.FinishReason)
	}
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("candidate has no text, finish reason %s", c.FinishReason)
	}
	return text, nil
}
