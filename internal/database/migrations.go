package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"oneclick/internal/models"
)

// Migrate applies every schema migration in order.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_accounts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.UserSettings{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("user_settings", "users")
			},
		},
		{
			ID: "002_billing",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Package{}, &models.Transaction{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("transactions", "packages")
			},
		},
		{
			ID: "003_studio",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.GenerationSession{}, &models.ModelSetting{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("generation_sessions", "model_settings")
			},
		},
		{
			ID: "004_build_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.BuildJob{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("build_jobs")
			},
		},
	})
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
