package models

import (
	"wardrobeapi/catalog"

	"github.com/go-playground/validator"
)

// ValidateCategory accepts only canonical category tags.
func ValidateCategory(fl validator.FieldLevel) bool {
	return catalog.Default().IsCategory(fl.Field().String())
}

func ValidateStyle(fl validator.FieldLevel) bool {
	return catalog.Default().IsStyle(fl.Field().String())
}
