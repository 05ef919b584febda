package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

// ParseFlag reads a form flag: "1", "true" and "yes" (any case) are true.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// parseOptionalInt returns nil for an empty value.
func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func formValueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func UIntPointer(u uint) *uint {
	return &u
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if limit <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, services.ErrFileTooLarge
	}
	return data, nil
}

// parseSelectionsField reads the clothing_items form field. Anything that is
// not a JSON array of selections reads as no selection.
func parseSelectionsField(value string) []models.ClothingSelectionIn {
	var selected []models.ClothingSelectionIn
	if err := json.Unmarshal([]byte(value), &selected); err != nil {
		fmt.Printf("[Fitting] ignoring malformed clothing_items: %v\n", err)
		return []models.ClothingSelectionIn{}
	}
	if selected == nil {
		return []models.ClothingSelectionIn{}
	}
	return selected
}

func toSelections(in []models.ClothingSelectionIn) []services.ClothingSelection {
	items := make([]services.ClothingSelection, 0, len(in))
	for _, item := range in {
		selection := services.ClothingSelection{ID: item.ID, Name: item.Name, Category: item.Category}
		if item.Img != nil {
			selection.Img = *item.Img
		}
		items = append(items, selection)
	}
	return items
}

func toFittingOut(result *services.FittingResult) models.FittingOut {
	return models.FittingOut{
		Type:       result.Type,
		URL:        services.StrPointer(result.URL),
		Text:       services.StrPointer(result.Text),
		PromptUsed: services.StrPointer(result.PromptUsed),
		Analysis:   services.StrPointer(result.Analysis),
		Message:    services.StrPointer(result.Message),
	}
}

func toWardrobeItemOut(resolved services.ResolvedItem) models.WardrobeItemOut {
	item := resolved.Item
	tags := []string(item.Tags)
	if tags == nil {
		tags = []string{}
	}
	attributes := map[string]interface{}(item.Attributes)
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	return models.WardrobeItemOut{
		ID:               item.ID,
		Name:             item.Name,
		Category:         item.Category,
		Color:            item.Color,
		Img:              resolved.DisplayURL,
		Tags:             tags,
		Attributes:       attributes,
		Brand:            item.Brand,
		Style:            item.Style,
		SizeLabel:        item.SizeLabel,
		PriceNTD:         item.PriceNTD,
		OwnerDisplayName: item.UserAccount.PublicName(),
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
	}
}
