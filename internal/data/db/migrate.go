package db

import (
	"gorm.io/gorm"

	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&catalog.Source{},
		&catalog.Product{},
		&catalog.Variant{},
		&catalog.VariantSnapshot{},
		&catalog.ChangeEvent{},
	)
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating catalog tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
