package models

type UploadedItemOut struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Color            string `json:"color"`
	Img              string `json:"img"`
	DaysInactive     *int   `json:"daysInactive"`
	OwnerDisplayName string `json:"owner_display_name"`
}

type UploadClothesOut struct {
	Message string          `json:"message"`
	Item    UploadedItemOut `json:"item"`
}

type GeneralUploadOut struct {
	Message         string `json:"message"`
	StorageLocation string `json:"storage_location"`
	ImageURL        string `json:"image_url"`
}

type WardrobeItemOut struct {
	ID               uint                   `json:"id"`
	Name             string                 `json:"name"`
	Category         string                 `json:"category"`
	Color            string                 `json:"color"`
	Img              string                 `json:"img"`
	Tags             []string               `json:"tags"`
	Attributes       map[string]interface{} `json:"attributes"`
	Brand            string                 `json:"brand"`
	Style            string                 `json:"style"`
	SizeLabel        string                 `json:"size_label"`
	PriceNTD         *int                   `json:"price_ntd"`
	OwnerDisplayName string                 `json:"owner_display_name"`
	CreatedAt        string                 `json:"created_at"`
}

type WardrobeListQuery struct {
	Category string `query:"category" validate:"omitempty,category"`
	Tag      string `query:"tag" validate:"omitempty,max=100"`
	Style    string `query:"style" validate:"omitempty,style"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

type WardrobeListOut struct {
	Items []WardrobeItemOut `json:"items"`
}

type ClothingSelectionIn struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" validate:"max=200"`
	Category string  `json:"category" validate:"max=50"`
	Img      *string `json:"img"`
}

type BodyMetricsIn struct {
	HeightCM *float64 `json:"height_cm" validate:"omitempty,gt=0,lt=300"`
	WeightKG *float64 `json:"weight_kg" validate:"omitempty,gt=0,lt=500"`
}

type FittingRequestIn struct {
	UserInput     string                `json:"user_input" validate:"max=2000"`
	SelectedItems []ClothingSelectionIn `json:"selected_items" validate:"dive"`
	UserPhoto     *string               `json:"user_photo"`
	BodyMetrics   *BodyMetricsIn        `json:"body_metrics"`
}

type FittingOut struct {
	Type       string  `json:"type"`
	URL        *string `json:"url,omitempty"`
	Text       *string `json:"text,omitempty"`
	PromptUsed *string `json:"prompt_used,omitempty"`
	Analysis   *string `json:"analysis,omitempty"`
	Message    *string `json:"message,omitempty"`
}

type ProfileOut struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
}
