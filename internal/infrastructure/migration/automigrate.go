package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// AutoMigrateModels returns every persistence model registered for schema
// migration, in dependency order.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.OwnerModel{},
		&models.ProductVersionModel{},
		&models.OwnerProductModel{},
		&models.ContentVersionModel{},
		&models.OwnerContentModel{},
		&models.EnvironmentModel{},
		&models.SubscriptionModel{},
		&models.ConsumerModel{},
		&models.ActivationKeyModel{},
		&models.PoolModel{},
		&models.EntitlementModel{},
		&models.CertSerialModel{},
		&models.CertificateModel{},
		&models.JobModel{},
	}
}

// Run migrates the database schema for all registered models.
func Run(db *gorm.DB) error {
	targets := AutoMigrateModels()
	logger.Info("starting database migration", "models_count", len(targets))

	if err := db.AutoMigrate(targets...); err != nil {
		logger.Error("migration failed", "error", err)
		return fmt.Errorf("auto migration failed: %w", err)
	}

	logger.Info("database migration completed")
	return nil
}
