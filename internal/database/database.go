package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seller-analytics-service/internal/models"
)

// Connect opens the Postgres connection pool
func Connect(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate applies the schema for every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Integration{},
		&models.Product{},
		&models.Sale{},
		&models.Fee{},
		&models.AdStat{},
		&models.SeoSnapshot{},
		&models.DailyKPI{},
		&models.ProductAnalytics{},
		&models.Alert{},
	)
}
