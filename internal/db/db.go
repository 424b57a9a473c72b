package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"habitloop/internal/config"
	"habitloop/internal/store"
)

var DB *gorm.DB

func Init(cfg *config.Config) error {
	var dialector gorm.Dialector
	if cfg.Postgres.DSN != "" {
		dialector = postgres.Open(cfg.Postgres.DSN)
	} else {
		// Local development fallback
		path := cfg.Sqlite.Path
		if path == "" {
			path = "habitloop.db"
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&store.LifeMetric{},
		&store.Goal{},
		&store.Habit{},
		&store.Insight{},
		&store.FeedbackEvent{},
		&store.AcceptanceMetric{},
	); err != nil {
		return err
	}

	DB = db
	log.Printf("Database connected and migrated")
	return nil
}
