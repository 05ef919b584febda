package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wardrobeapi/catalog"
)

const (
	FittingTypeImage = "image"
	FittingTypeText  = "text"

	DefaultFittingIntent = "時尚日常穿搭"
)

var (
	ErrNoItemsSelected = errors.New("No clothing items selected")
	ErrInvalidPhoto    = errors.New("invalid user photo")
)

type FittingRequest struct {
	UserInput string
	Items     []ClothingSelection
	// Base64 or data URL; empty means no photo.
	UserPhoto   string
	BodyMetrics *BodyMetrics
}

// FittingResult is either an image (URL set) or a text explanation.
type FittingResult struct {
	Type       string
	URL        string
	Text       string
	PromptUsed string
	Analysis   string
	Message    string
}

type FittingService struct {
	Generator ImageGenerator
	Analyzer  PhotoAnalyzer
	Taxonomy  *catalog.Taxonomy
}

func NewFittingService(generator ImageGenerator, analyzer PhotoAnalyzer) *FittingService {
	return &FittingService{Generator: generator, Analyzer: analyzer, Taxonomy: catalog.Default()}
}

func generationDetail(err error, fallbackPrompt string) (string, string) {
	var unavailable *GenerationUnavailableError
	if errors.As(err, &unavailable) {
		prompt := unavailable.Prompt
		if prompt == "" {
			prompt = fallbackPrompt
		}
		return unavailable.Detail, prompt
	}
	return err.Error(), fallbackPrompt
}

func timeoutText(detail, prompt string) string {
	return fmt.Sprintf(`⚠️ 圖片生成逾時

%s

生成的提示詞：
%s`, detail, prompt)
}

func remediationText(detail, prompt string) string {
	return fmt.Sprintf(`⚠️ 圖片生成服務未配置

%s

**如何啟用 AI 虛擬試衣：**

1. **使用 Google Gemini + Imagen (推薦)**
   - 獲取 Gemini API Key: https://makersuite.google.com/app/apikey
   - 創建 Google Cloud 項目並啟用 Vertex AI API
   - 設定環境變數：
     * GEMINI_API_KEY=your_key
     * GCP_PROJECT_ID=your_project_id
     * GCP_LOCATION=us-central1

生成的提示詞：
%s`, detail, prompt)
}

func (s *FittingService) imageResult(image *TryOnImage, prompt string) *FittingResult {
	return &FittingResult{Type: FittingTypeImage, URL: image.DataURL(), PromptUsed: prompt}
}

// Generate renders the selected outfit. With a usable photo the prompt is
// personalised first; if photo analysis fails the plain prompt is used.
func (s *FittingService) Generate(ctx context.Context, req FittingRequest) (*FittingResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItemsSelected
	}
	basePrompt := ComposeFittingPrompt(s.Taxonomy, req.Items, req.UserInput, req.BodyMetrics)

	if req.UserPhoto != "" {
		enhancement, err := s.enhance(ctx, req.UserPhoto, basePrompt)
		if err == nil {
			image, genErr := s.Generator.GenerateTryOn(ctx, enhancement.EnhancedPrompt, FittingWidth, FittingHeight)
			if genErr == nil {
				return s.imageResult(image, enhancement.EnhancedPrompt), nil
			}
			detail, _ := generationDetail(genErr, enhancement.EnhancedPrompt)
			return &FittingResult{
				Type:       FittingTypeText,
				Text:       fmt.Sprintf("圖片生成失敗：%s", detail),
				PromptUsed: enhancement.EnhancedPrompt,
			}, nil
		}
		log.Printf("[Fitting] Photo analysis failed: %v, falling back to standard generation", err)
	}

	image, err := s.Generator.GenerateTryOn(ctx, basePrompt, FittingWidth, FittingHeight)
	if err == nil {
		return s.imageResult(image, image.Prompt), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	detail, prompt := generationDetail(err, basePrompt)
	text := remediationText(detail, prompt)
	var unavailable *GenerationUnavailableError
	if errors.As(err, &unavailable) && unavailable.TimedOut {
		text = timeoutText(detail, prompt)
	}
	return &FittingResult{
		Type:       FittingTypeText,
		Text:       text,
		PromptUsed: basePrompt,
	}, nil
}

func (s *FittingService) enhance(ctx context.Context, payload string, basePrompt string) (*PhotoEnhancement, error) {
	if s.Analyzer == nil {
		return nil, ErrPhotoAnalysisUnavailable
	}
	photo, err := DecodePhotoPayload(payload)
	if err != nil {
		return nil, err
	}
	return s.Analyzer.EnhanceWithPhoto(ctx, photo, basePrompt)
}

// GenerateWithPhoto is the upload variant: the photo is required, and an
// analysis failure is reported instead of falling back.
func (s *FittingService) GenerateWithPhoto(ctx context.Context, photo []byte, items []ClothingSelection, userInput string) (*FittingResult, error) {
	if len(items) == 0 {
		return nil, ErrNoItemsSelected
	}
	if userInput == "" {
		userInput = DefaultFittingIntent
	}
	jpeg, err := NormalizePhotoJPEG(photo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	basePrompt := ComposeFittingPrompt(s.Taxonomy, items, userInput, nil)

	if s.Analyzer == nil {
		return analysisFailed(ErrPhotoAnalysisUnavailable), nil
	}
	enhancement, err := s.Analyzer.EnhanceWithPhoto(ctx, jpeg, basePrompt)
	if err != nil {
		log.Printf("[Fitting] Photo analysis failed: %v", err)
		return analysisFailed(err), nil
	}

	image, err := s.Generator.GenerateTryOn(ctx, enhancement.EnhancedPrompt, FittingWidth, FittingHeight)
	if err != nil {
		detail, _ := generationDetail(err, enhancement.EnhancedPrompt)
		return &FittingResult{
			Type:     FittingTypeText,
			Text:     fmt.Sprintf("圖片生成失敗：%s", detail),
			Analysis: enhancement.Analysis,
		}, nil
	}
	result := s.imageResult(image, enhancement.EnhancedPrompt)
	result.Analysis = enhancement.Analysis
	return result, nil
}

func analysisFailed(err error) *FittingResult {
	return &FittingResult{
		Type:    FittingTypeText,
		Text:    fmt.Sprintf("照片分析失敗：%v", err),
		Message: "請確保已設定 GEMINI_API_KEY",
	}
}
