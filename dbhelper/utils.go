package dbhelper

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"wardrobeapi/models"
)

func SetupCleaner(db *gorm.DB) func() {
	return func() {
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.WardrobeItem{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.UserAccount{})
	}
}

func Migrate(db *gorm.DB, model interface{}) error {
	if err := db.AutoMigrate(model); err != nil {
		log.Printf("Error while migrating %T", model)
		return fmt.Errorf("migrate %T: %w", model, err)
	}
	return nil
}
