package models

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Attribute keys written by the upload pipeline.
const (
	AttrBackgroundRemoved = "bg_removed"
	AttrMaterial          = "material"
	AttrOccasion          = "occasion"
	AttrSize              = "size"
	AttrCondition         = "condition"
)

type WardrobeItem struct {
	JsonModel
	UserAccountID uint        `gorm:"index" json:"-"`
	UserAccount   UserAccount `json:"-"`
	Name          string      `json:"name"`
	Category      string      `gorm:"index" json:"category"`
	Color         string      `json:"color"`
	// Durable storage location (gs://bucket/key or s3://bucket/key), never sent to clients.
	ImageURL   string            `json:"-"`
	Tags       pq.StringArray    `gorm:"type:text[]" json:"tags"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes"`
	Brand      string            `json:"brand"`
	Style      string            `json:"style"`
	SizeLabel  string            `json:"size_label"`
	PriceNTD   *int              `json:"price_ntd"`
}
