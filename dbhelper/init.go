package dbhelper

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wardrobeapi/config"
	"wardrobeapi/models"
)

func SetupDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	for _, model := range []interface{}{&models.UserAccount{}, &models.WardrobeItem{}} {
		if err := Migrate(db, model); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// SetupTestDB connects to the local test database described by the DB_*
// variables, defaulting to the docker-compose credentials.
func SetupTestDB() (*gorm.DB, error) {
	return SetupDB(config.DatabaseConfig{
		Username: config.GetEnv("DB_USERNAME", "wardrobe"),
		Password: config.GetEnv("DB_PASSWORD", "wardrobe"),
		Host:     config.GetEnv("DB_HOST", "localhost"),
		Port:     config.GetEnv("DB_PORT", "5432"),
		Name:     config.GetEnv("DB_NAME", "wardrobe_test"),
		SSLMode:  config.GetEnv("DB_SSLMODE", "disable"),
	})
}
