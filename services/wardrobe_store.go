package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"wardrobeapi/models"
)

var ErrUserNotFound = errors.New("user not found")

type WardrobeFilter struct {
	Category string
	Style    string
	Tag      string
	Limit    int
}

// WardrobeStore is the only component that reads or writes wardrobe records.
type WardrobeStore interface {
	FindUser(ctx context.Context, id uint) (*models.UserAccount, error)
	CreateItem(ctx context.Context, item *models.WardrobeItem) error
	ListItems(ctx context.Context, userID uint, filter WardrobeFilter) ([]models.WardrobeItem, error)
}

type GormWardrobeStore struct {
	DB *gorm.DB
}

func NewGormWardrobeStore(db *gorm.DB) *GormWardrobeStore {
	return &GormWardrobeStore{DB: db}
}

func (s *GormWardrobeStore) FindUser(ctx context.Context, id uint) (*models.UserAccount, error) {
	var user models.UserAccount
	result := s.DB.WithContext(ctx).Where("id = ?", id).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("fetch user %d: %w", id, result.Error)
	}
	return &user, nil
}

// CreateItem inserts the record and loads its owner for the response.
func (s *GormWardrobeStore) CreateItem(ctx context.Context, item *models.WardrobeItem) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("UserAccount").Create(item).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", item.UserAccountID).Take(&item.UserAccount).Error
	})
}

func (s *GormWardrobeStore) ListItems(ctx context.Context, userID uint, filter WardrobeFilter) ([]models.WardrobeItem, error) {
	query := s.DB.WithContext(ctx).Preload("UserAccount").Where("user_account_id = ?", userID)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Style != "" {
		query = query.Where("style = ?", filter.Style)
	}
	if filter.Tag != "" {
		query = query.Where("? = ANY(tags)", filter.Tag)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var items []models.WardrobeItem
	if err := query.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list wardrobe items: %w", err)
	}
	return items, nil
}
