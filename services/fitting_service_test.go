package services_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/services"
	"wardrobeapi/test"
)

var outfit = []services.ClothingSelection{
	{ID: "1", Name: "針織衫", Category: "上衣"},
	{ID: "2", Name: "長裙", Category: "裙子"},
}

func TestFittingGenerateRequiresItems(t *testing.T) {
	service := services.NewFittingService(&test.GeneratorMock{}, &test.AnalyzerMock{})

	_, err := service.Generate(context.Background(), services.FittingRequest{UserInput: "hi"})
	assert.ErrorIs(t, err, services.ErrNoItemsSelected)

	_, err = service.GenerateWithPhoto(context.Background(), test.GarmentJPEG(), nil, "")
	assert.ErrorIs(t, err, services.ErrNoItemsSelected)
}

func TestFittingGenerateImage(t *testing.T) {
	generator := &test.GeneratorMock{Image: []byte("img")}
	service := services.NewFittingService(generator, &test.AnalyzerMock{})

	result, err := service.Generate(context.Background(), services.FittingRequest{Items: outfit, UserInput: "上班"})

	require.NoError(t, err)
	assert.Equal(t, services.FittingTypeImage, result.Type)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("img")), result.URL)
	assert.Equal(t, generator.Prompts[0], result.PromptUsed)
	assert.Contains(t, result.PromptUsed, "top: 針織衫, skirt: 長裙")
}

func TestFittingGenerateGenericErrorGivesRemediation(t *testing.T) {
	generator := &test.GeneratorMock{Err: errors.New("backend exploded")}
	service := services.NewFittingService(generator, nil)

	result, err := service.Generate(context.Background(), services.FittingRequest{Items: outfit})

	require.NoError(t, err)
	assert.Equal(t, services.FittingTypeText, result.Type)
	assert.Contains(t, result.Text, "backend exploded")
	assert.Contains(t, result.Text, "GCP_LOCATION")
	assert.True(t, strings.HasSuffix(result.Text, result.PromptUsed))
}

func TestFittingGenerateTimeoutIsNotReportedAsMissingConfig(t *testing.T) {
	generator := &test.GeneratorMock{Err: &services.GenerationUnavailableError{Detail: "圖片生成服務逾時", TimedOut: true}}
	service := services.NewFittingService(generator, nil)

	result, err := service.Generate(context.Background(), services.FittingRequest{Items: outfit})

	require.NoError(t, err)
	assert.Equal(t, services.FittingTypeText, result.Type)
	assert.True(t, strings.HasPrefix(result.Text, "⚠️ 圖片生成逾時"), result.Text)
	assert.Contains(t, result.Text, "圖片生成服務逾時")
	assert.NotContains(t, result.Text, "GCP_LOCATION")
	assert.True(t, strings.HasSuffix(result.Text, result.PromptUsed))
}

func TestFittingGenerateCanceled(t *testing.T) {
	generator := &test.GeneratorMock{Err: context.Canceled}
	service := services.NewFittingService(generator, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Generate(ctx, services.FittingRequest{Items: outfit})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFittingGenerateWithPhotoGenerationFailure(t *testing.T) {
	generator := &test.GeneratorMock{Err: &services.GenerationUnavailableError{Detail: "quota"}}
	analyzer := &test.AnalyzerMock{Enhancement: &services.PhotoEnhancement{EnhancedPrompt: "p", Analysis: "tall"}}
	service := services.NewFittingService(generator, analyzer)

	result, err := service.GenerateWithPhoto(context.Background(), test.GarmentJPEG(), outfit, "")

	require.NoError(t, err)
	assert.Equal(t, services.FittingTypeText, result.Type)
	assert.Equal(t, "圖片生成失敗：quota", result.Text)
	assert.Equal(t, "tall", result.Analysis)
	assert.Contains(t, analyzer.BasePrompt, services.DefaultFittingIntent)
}

func TestFittingGenerateWithPhotoNoAnalyzer(t *testing.T) {
	generator := &test.GeneratorMock{Image: []byte("img")}
	service := services.NewFittingService(generator, nil)

	result, err := service.GenerateWithPhoto(context.Background(), test.GarmentJPEG(), outfit, "派對")

	require.NoError(t, err)
	assert.Equal(t, services.FittingTypeText, result.Type)
	assert.Contains(t, result.Text, "照片分析失敗")
	assert.Equal(t, "請確保已設定 GEMINI_API_KEY", result.Message)
	assert.Empty(t, generator.Prompts)
}

func TestFittingGenerateWithPhotoInvalidImage(t *testing.T) {
	service := services.NewFittingService(&test.GeneratorMock{}, &test.AnalyzerMock{})

	_, err := service.GenerateWithPhoto(context.Background(), []byte("text"), outfit, "")

	assert.ErrorIs(t, err, services.ErrInvalidPhoto)
}

func TestFittingGeneratePhotoPayloadGenerationFailure(t *testing.T) {
	generator := &test.GeneratorMock{Err: errors.New("timeout")}
	analyzer := &test.AnalyzerMock{Enhancement: &services.PhotoEnhancement{EnhancedPrompt: "personal prompt"}}
	service := services.NewFittingService(generator, analyzer)

	result, err := service.Generate(context.Background(), services.FittingRequest{
		Items:     outfit,
		UserPhoto: base64.StdEncoding.EncodeToString(test.GarmentJPEG()),
	})

	require.NoError(t, err)
	assert.Equal(t, "圖片生成失敗：timeout", result.Text)
	assert.Equal(t, "personal prompt", result.PromptUsed)
}
