package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"wardrobeapi/config"
)

const (
	FittingWidth  = 768
	FittingHeight = 1024

	qualitySuffix = ", high resolution, detailed fabric texture, natural lighting, studio quality, 8k, sharp focus"

	MissingGenerationConfigMessage = "請配置 GEMINI_API_KEY 和 GCP_PROJECT_ID 來使用 Google AI 服務"
)

// generationTimeoutMessage is returned when every provider that was tried
// ran out of time.
func generationTimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("圖片生成服務逾時（每個服務 %s），請稍後再試或調高 GENERATE_TIMEOUT", timeout)
}

// TryOnImage is a rendered outfit.
type TryOnImage struct {
	Data     []byte
	MIMEType string
	Prompt   string
	Service  string
}

func (t TryOnImage) DataURL() string {
	mimeType := t.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(t.Data))
}

// GenerationUnavailableError means no image could be produced. Detail is
// caller facing text; Prompt is the last prompt that was tried. TimedOut is
// set when every provider that was tried hit its deadline.
type GenerationUnavailableError struct {
	Detail      string
	Prompt      string
	Description string
	TimedOut    bool
}

func (e *GenerationUnavailableError) Error() string { return e.Detail }

type ImageGenerator interface {
	GenerateTryOn(ctx context.Context, prompt string, width, height int) (*TryOnImage, error)
}

// GoogleImageGenerator renders outfits with, in order: Imagen on Vertex AI,
// the Gemini image model, and finally a Gemini text description.
type GoogleImageGenerator struct {
	Text            ContentGenerator
	Images          ImagesGenerator
	TextModel       string
	ImageModel      string
	ImagenModel     string
	EnhancePrompts  bool
	UseGeminiImages bool
	Timeout         time.Duration
}

func NewGoogleImageGenerator(clients GoogleClients, cfg *config.Config) *GoogleImageGenerator {
	return &GoogleImageGenerator{
		Text:            clients.GeminiModels(),
		Images:          clients.VertexImages(),
		TextModel:       modelOrDefault(cfg.AI.TextModel, Flash25),
		ImageModel:      modelOrDefault(cfg.AI.ImageModel, Flash25Image),
		ImagenModel:     modelOrDefault(cfg.AI.ImagenModel, Imagen3),
		EnhancePrompts:  cfg.AI.EnhancePrompts,
		UseGeminiImages: cfg.AI.UseGeminiImages,
		Timeout:         cfg.Timeouts.Generate,
	}
}

func enhancementRequest(prompt string) string {
	return fmt.Sprintf(`將以下時尚穿搭描述轉換為詳細的英文圖片生成提示詞，適用於專業時尚攝影風格的 AI 圖片生成：

%s

要求：
1. 使用專業時尚攝影術語
2. 描述模特兒姿態和表情
3. 說明光線和背景
4. 強調服裝質感和細節
5. 只輸出英文提示詞，不要其他說明

輸出格式：Professional fashion photography, [詳細描述]`, prompt)
}

func descriptionRequest(prompt string) string {
	return fmt.Sprintf(`基於以下時尚穿搭提示，生成一段詳細的視覺化描述，幫助用戶想像穿搭效果：

%s

請描述：
1. 整體穿搭風格和氛圍
2. 每件服裝的搭配效果
3. 適合的場合和季節
4. 視覺上的亮點
5. 穿搭建議

用生動、專業的語言描述，讓用戶能清楚想像穿搭效果。`, prompt)
}

func descriptionFallbackMessage(description string) string {
	return fmt.Sprintf(`⚠️ Imagen 圖片生成服務未配置

當前使用 Gemini 生成文字描述作為替代：

%s

**如何啟用圖片生成：**
1. 設定 GCP_PROJECT_ID 環境變數
2. 啟用 Vertex AI API
3. 配置服務帳號認證`, description)
}

func aspectRatio(width, height int) string {
	if height > width {
		return "9:16"
	}
	return "3:4"
}

func (g *GoogleImageGenerator) generateText(ctx context.Context, request string) (string, error) {
	response, err := g.Text.GenerateContent(ctx, g.TextModel, userContent(&genai.Part{Text: request}),
		&genai.GenerateContentConfig{CandidateCount: 1, Temperature: floatPointer(0.7)})
	if err != nil {
		return "", err
	}
	return GetFirstCandidateText(response)
}

func (g *GoogleImageGenerator) enhancePrompt(ctx context.Context, prompt string) (string, error) {
	enhanced, err := g.generateText(ctx, enhancementRequest(prompt))
	if err != nil {
		return "", err
	}
	return enhanced + qualitySuffix, nil
}

func (g *GoogleImageGenerator) generateWithImagen(ctx context.Context, prompt string, width, height int) (*TryOnImage, error) {
	response, err := g.Images.GenerateImages(ctx, g.ImagenModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:    1,
		AspectRatio:       aspectRatio(width, height),
		PersonGeneration:  genai.PersonGenerationAllowAdult,
		SafetyFilterLevel: genai.SafetyFilterLevelBlockMediumAndAbove,
		OutputMIMEType:    "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generation error: %w", err)
	}
	for _, generated := range response.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		return &TryOnImage{
			Data:     generated.Image.ImageBytes,
			MIMEType: generated.Image.MIMEType,
			Prompt:   prompt,
			Service:  "google-imagen",
		}, nil
	}
	return nil, fmt.Errorf("imagen did not return any images")
}

func (g *GoogleImageGenerator) generateWithGemini(ctx context.Context, prompt string, width, height int) (*TryOnImage, error) {
	request := fmt.Sprintf("%s\n\nFull body, portrait orientation, aspect ratio %s.", prompt, aspectRatio(width, height))
	response, err := g.Text.GenerateContent(ctx, g.ImageModel, userContent(&genai.Part{Text: request}),
		&genai.GenerateContentConfig{CandidateCount: 1, Temperature: floatPointer(1)})
	if err != nil {
		return nil, fmt.Errorf("gemini image generation error: %w", err)
	}
	if err := checkPromptFeedback(response); err != nil {
		return nil, err
	}
	images, err := GetAllInlineImages(response)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("gemini did not return any images")
	}
	return &TryOnImage{
		Data:     images[0].Data,
		MIMEType: images[0].MIMEType,
		Prompt:   prompt,
		Service:  "google-gemini-image",
	}, nil
}

// stageContext bounds a single provider call; every stage gets the full timeout.
func (g *GoogleImageGenerator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout > 0 {
		return context.WithTimeout(ctx, g.Timeout)
	}
	return context.WithCancel(ctx)
}

func (g *GoogleImageGenerator) GenerateTryOn(ctx context.Context, prompt string, width, height int) (*TryOnImage, error) {
	enhanced := prompt
	if g.Text != nil && g.EnhancePrompts {
		stageCtx, cancel := g.stageContext(ctx)
		p, err := g.enhancePrompt(stageCtx, prompt)
		cancel()
		if err != nil {
			log.Printf("[Fitting] Gemini prompt enhancement failed: %v", err)
		} else {
			enhanced = p
		}
	}

	attempts, timeouts := 0, 0
	failed := func(stageCtx context.Context, err error) {
		attempts++
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			timeouts++
		}
	}

	if g.Images != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageCtx, cancel := g.stageContext(ctx)
		image, err := g.generateWithImagen(stageCtx, enhanced, width, height)
		if err == nil {
			cancel()
			return image, nil
		}
		failed(stageCtx, err)
		cancel()
		log.Printf("[Fitting] Imagen failed: %v", err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("failure_type", "imagen")
			sentry.CaptureException(err)
		})
	}

	if g.Text != nil && g.UseGeminiImages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageCtx, cancel := g.stageContext(ctx)
		image, err := g.generateWithGemini(stageCtx, enhanced, width, height)
		if err == nil {
			cancel()
			return image, nil
		}
		failed(stageCtx, err)
		cancel()
		log.Printf("[Fitting] Gemini image model failed: %v", err)
	}

	if g.Text != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageCtx, cancel := g.stageContext(ctx)
		description, err := g.generateText(stageCtx, descriptionRequest(enhanced))
		if err == nil {
			cancel()
			return nil, &GenerationUnavailableError{
				Detail:      descriptionFallbackMessage(description),
				Prompt:      enhanced,
				Description: description,
			}
		}
		failed(stageCtx, err)
		cancel()
		log.Printf("[Fitting] Gemini description failed: %v", err)
	}

	if attempts > 0 && attempts == timeouts {
		return nil, &GenerationUnavailableError{Detail: generationTimeoutMessage(g.Timeout), Prompt: enhanced, TimedOut: true}
	}
	return nil, &GenerationUnavailableError{Detail: MissingGenerationConfigMessage, Prompt: prompt}
}
