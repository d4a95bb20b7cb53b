package migration

import (
	"Plant-Care-Backend/entities"
	"Plant-Care-Backend/internal/utils/logger"
	"fmt"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB, log *logger.Logger) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			log.Warn("could not create uuid-ossp extension", "error", err)
		}
	}

	models := []struct {
		name  string
		model any
	}{
		{"user", &entities.User{}},
		{"plant species", &entities.PlantSpecies{}},
		{"scan", &entities.Scan{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("migrating %s table: %w", m.name, err)
		}
	}

	log.Info("database migration complete")
	return nil
}
