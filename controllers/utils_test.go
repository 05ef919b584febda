package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

func TestParseFlag(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes "} {
		assert.True(t, ParseFlag(v), v)
	}
	for _, v := range []string{"", "0", "false", "on"} {
		assert.False(t, ParseFlag(v), v)
	}
}

func TestWardrobeItemOutCreatedAtIsUTC(t *testing.T) {
	taipei := time.FixedZone("CST", 8*60*60)
	item := models.WardrobeItem{Name: "Tee"}
	item.CreatedAt = time.Date(2024, 3, 1, 9, 30, 0, 0, taipei)

	out := toWardrobeItemOut(services.ResolvedItem{Item: item})

	assert.Equal(t, "2024-03-01T01:30:00Z", out.CreatedAt)
	assert.Equal(t, []string{}, out.Tags)
	assert.Equal(t, map[string]interface{}{}, out.Attributes)
}
