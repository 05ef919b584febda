package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"wardrobeapi/catalog"
	"wardrobeapi/models"
)

const classifyPrompt = `請分析這張衣物圖片，並以 JSON 格式回傳以下信息（必須回傳有效的 JSON）：
{
    "category": "衣物類別 (上衣/褲子/裙子/洋裝/外套/鞋子/帽子/包包/配件/襪子/特殊)",
    "colors": ["主要顏色", "次要顏色"],
    "style": "風格 (休閒/正式/運動/可愛/個性/簡約/復古/其他)",
    "material": "材質 (棉/麻/絲/羊毛/聚酯纖維/皮革/牛仔/其他)",
    "brand": "品牌 (如果看得出來)",
    "occasion": "適合場合 (日常/正式/運動/聚會/其他)",
    "size": "衣物尺寸估計 (S/M/L/XL/XXL 或 FREE)",
    "condition": "衣物狀況 (全新/良好/正常/磨損/其他)"
}

請務必只回傳 JSON 內容，不要加入任何其他文字。`

const defaultAnalysisName = "AI辨識的衣物"

// ClothingAnalysis is the best effort description of one garment photo.
type ClothingAnalysis struct {
	Category   catalog.Category       `json:"category"`
	Colors     []string               `json:"colors"`
	Style      catalog.Style          `json:"style"`
	Material   string                 `json:"material"`
	Brand      string                 `json:"brand"`
	Occasion   string                 `json:"occasion"`
	Size       string                 `json:"size"`
	Condition  string                 `json:"condition"`
	Name       string                 `json:"name"`
	Attributes map[string]interface{} `json:"attributes"`
}

// DefaultClothingAnalysis is returned whenever classification cannot run.
func DefaultClothingAnalysis() ClothingAnalysis {
	return ClothingAnalysis{
		Category: catalog.CategorySpecial,
		Colors:   []string{""},
		Style:    catalog.StyleCasual,
		Name:     defaultAnalysisName,
		Attributes: map[string]interface{}{
			models.AttrMaterial:  "",
			models.AttrOccasion:  "",
			models.AttrSize:      "",
			models.AttrCondition: "",
		},
	}
}

// ClassificationResult tells a model derived analysis apart from the
// default one. Reason explains why the default was used.
type ClassificationResult struct {
	Analysis ClothingAnalysis
	Derived  bool
	Reason   string
}

func defaulted(reason string) ClassificationResult {
	return ClassificationResult{Analysis: DefaultClothingAnalysis(), Reason: reason}
}

// ClothingClassifier never returns an error; failures yield the default analysis.
type ClothingClassifier interface {
	Classify(ctx context.Context, data []byte, filename string) ClassificationResult
}

var classifierMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func classifierMimeType(filename string) string {
	if m, ok := classifierMimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return "image/jpeg"
}

// ExtractJSONObject returns the span from the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no json object in model output")
	}
	return text[start : end+1], nil
}

func stringField(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func colorsField(raw map[string]interface{}) []string {
	switch v := raw["colors"].(type) {
	case []interface{}:
		colors := make([]string, 0, len(v))
		for _, c := range v {
			if c == nil {
				continue
			}
			colors = append(colors, strings.TrimSpace(fmt.Sprint(c)))
		}
		if len(colors) > 0 {
			return colors
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return []string{""}
}

// ParseClothingAnalysis turns raw model output into a normalised analysis.
func ParseClothingAnalysis(text string, taxonomy *catalog.Taxonomy) (ClothingAnalysis, error) {
	span, err := ExtractJSONObject(text)
	if err != nil {
		return ClothingAnalysis{}, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return ClothingAnalysis{}, fmt.Errorf("decode model json: %w", err)
	}

	category := taxonomy.Canonicalize(stringField(raw, "category"))
	analysis := ClothingAnalysis{
		Category:  category,
		Colors:    colorsField(raw),
		Style:     taxonomy.CanonicalizeStyle(stringField(raw, "style")),
		Material:  stringField(raw, "material"),
		Brand:     stringField(raw, "brand"),
		Occasion:  stringField(raw, "occasion"),
		Size:      stringField(raw, "size"),
		Condition: stringField(raw, "condition"),
		Name:      fmt.Sprintf("AI辨識的%s", category),
	}
	analysis.Attributes = map[string]interface{}{
		models.AttrMaterial:  analysis.Material,
		models.AttrOccasion:  analysis.Occasion,
		models.AttrSize:      analysis.Size,
		models.AttrCondition: analysis.Condition,
	}
	return analysis, nil
}

// GeminiClassifier asks a Gemini vision model to describe the garment.
type GeminiClassifier struct {
	Models   ContentGenerator
	Model    string
	Taxonomy *catalog.Taxonomy
	Timeout  time.Duration
}

func NewGeminiClassifier(models ContentGenerator, model string, timeout time.Duration) *GeminiClassifier {
	return &GeminiClassifier{
		Models:   models,
		Model:    modelOrDefault(model, Flash25),
		Taxonomy: catalog.Default(),
		Timeout:  timeout,
	}
}

func (g *GeminiClassifier) Classify(ctx context.Context, data []byte, filename string) (result ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = defaulted(fmt.Sprintf("classifier panic: %v", r))
		}
		if !result.Derived {
			log.Printf("[Classify] %s: using default analysis: %s", filename, result.Reason)
		}
	}()

	if g.Models == nil {
		return defaulted("GEMINI_API_KEY not configured")
	}
	if len(data) == 0 {
		return defaulted("empty image")
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	response, err := g.Models.GenerateContent(ctx, g.Model,
		userContent(inlineImagePart(data, classifierMimeType(filename)), &genai.Part{Text: classifyPrompt}),
		&genai.GenerateContentConfig{
			CandidateCount: 1,
			Temperature:    floatPointer(0.2),
		})
	if err != nil {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("failure_type", "classify")
			sentry.CaptureException(err)
		})
		return defaulted(fmt.Sprintf("model call failed: %v", err))
	}
	text, err := GetFirstCandidateText(response)
	if err != nil {
		return defaulted(err.Error())
	}
	analysis, err := ParseClothingAnalysis(text, g.Taxonomy)
	if err != nil {
		return defaulted(err.Error())
	}
	return ClassificationResult{Analysis: analysis, Derived: true}
}
