package services

import (
	"fmt"
	"strconv"
	"strings"

	"wardrobeapi/catalog"
)

// ClothingSelection is a garment the caller picked for a fitting.
type ClothingSelection struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Img      string `json:"img,omitempty"`
}

type BodyMetrics struct {
	HeightCM *float64 `json:"height_cm"`
	WeightKG *float64 `json:"weight_kg"`
}

func (b *BodyMetrics) complete() bool {
	return b != nil && b.HeightCM != nil && b.WeightKG != nil && *b.HeightCM > 0 && *b.WeightKG > 0
}

// BMI is weight / height(m)^2. ok is false unless both metrics are set.
func (b *BodyMetrics) BMI() (float64, bool) {
	if !b.complete() {
		return 0, false
	}
	meters := *b.HeightCM / 100
	return *b.WeightKG / (meters * meters), true
}

// BuildDescriptor buckets BMI: below 18.5 slim, above 25 athletic.
func BuildDescriptor(metrics *BodyMetrics) string {
	bmi, ok := metrics.BMI()
	switch {
	case !ok:
		return "average build"
	case bmi < 18.5:
		return "slim build"
	case bmi > 25:
		return "athletic build"
	}
	return "average build"
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ComposeFittingPrompt builds the image generation prompt. It is pure: the
// same inputs always give the same text.
func ComposeFittingPrompt(taxonomy *catalog.Taxonomy, items []ClothingSelection, userIntent string, metrics *BodyMetrics) string {
	descriptions := make([]string, 0, len(items))
	for _, item := range items {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", taxonomy.EnglishLabel(item.Category), item.Name))
	}
	clothingText := strings.Join(descriptions, ", ")

	var sb strings.Builder
	fmt.Fprintf(&sb, "A professional Asian Taiwanese female fashion model wearing %s, %s, ", clothingText, BuildDescriptor(metrics))
	sb.WriteString("standing in a modern minimalist studio, soft natural lighting, neutral background, " +
		"full body shot, confident pose, high-end fashion photography style, detailed clothing texture, " +
		"realistic fabric, professional fashion magazine quality, East Asian features, natural makeup.")
	if metrics.complete() {
		fmt.Fprintf(&sb, " 體型特徵：身高 %scm, 體重 %skg.", formatMetric(*metrics.HeightCM), formatMetric(*metrics.WeightKG))
	}
	if userIntent != "" {
		fmt.Fprintf(&sb, " Styling request: %s", userIntent)
	}
	return sb.String()
}
