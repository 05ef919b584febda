package models

type UserAccount struct {
	JsonModel
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"unique"`
	DisplayName string `json:"display_name"`
	Banned      bool   `gorm:"default:false" json:"-"`
	AvatarURL   string `json:"avatar_url"`
}

// PublicName is the owner label shown next to items.
func (u UserAccount) PublicName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}
