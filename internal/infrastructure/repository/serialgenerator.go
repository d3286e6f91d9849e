package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// SerialGeneratorImpl allocates monotonic certificate serials from the
// database's auto-increment sequence, so serials stay unique across engine
// instances.
type SerialGeneratorImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewSerialGenerator creates a new serial generator instance
func NewSerialGenerator(db *gorm.DB, logger logger.Interface) entitlement.SerialGenerator {
	return &SerialGeneratorImpl{db: db, logger: logger}
}

func (g *SerialGeneratorImpl) NextSerial(ctx context.Context) (int64, error) {
	model := &models.CertSerialModel{}
	if err := g.db.WithContext(ctx).Create(model).Error; err != nil {
		g.logger.Errorw("failed to allocate certificate serial", "error", err)
		return 0, fmt.Errorf("failed to allocate certificate serial: %w", err)
	}
	return int64(model.ID), nil
}
