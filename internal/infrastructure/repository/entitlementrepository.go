package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// EntitlementRepositoryImpl implements the entitlement.Repository interface
type EntitlementRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewEntitlementRepository creates a new entitlement repository instance
func NewEntitlementRepository(db *gorm.DB, logger logger.Interface) entitlement.Repository {
	return &EntitlementRepositoryImpl{db: db, logger: logger}
}

func (r *EntitlementRepositoryImpl) Create(ctx context.Context, e *entitlement.Entitlement) error {
	model := entitlementToModel(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("entitlement %q already exists", e.ID()))
		}
		r.logger.Errorw("failed to create entitlement",
			"entitlement_id", e.ID(), "consumer_uuid", e.ConsumerUUID(), "error", err)
		return fmt.Errorf("failed to create entitlement: %w", err)
	}
	r.logger.Infow("entitlement created",
		"entitlement_id", e.ID(),
		"consumer_uuid", e.ConsumerUUID(),
		"pool_id", e.PoolID(),
		"quantity", e.Quantity())
	return nil
}

func (r *EntitlementRepositoryImpl) Update(ctx context.Context, e *entitlement.Entitlement) error {
	result := r.db.WithContext(ctx).
		Model(&models.EntitlementModel{}).
		Where("entitlement_id = ?", e.ID()).
		Updates(map[string]any{
			"quantity":    e.Quantity(),
			"cert_serial": e.CertSerial(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update entitlement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("entitlement %q not found", e.ID()))
	}
	return nil
}

func (r *EntitlementRepositoryImpl) Get(ctx context.Context, entID string) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel
	if err := r.db.WithContext(ctx).Where("entitlement_id = ?", entID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("entitlement %q not found", entID))
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return entitlementToDomain(&model)
}

func (r *EntitlementRepositoryImpl) ListByConsumer(ctx context.Context, consumerUUID string) ([]*entitlement.Entitlement, error) {
	var ms []models.EntitlementModel
	err := r.db.WithContext(ctx).
		Where("consumer_uuid = ?", consumerUUID).
		Order("added_at").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements by consumer: %w", err)
	}
	return entitlementsToDomain(ms)
}

func (r *EntitlementRepositoryImpl) ListByPool(ctx context.Context, poolID string) ([]*entitlement.Entitlement, error) {
	var ms []models.EntitlementModel
	err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("added_at").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements by pool: %w", err)
	}
	return entitlementsToDomain(ms)
}

func (r *EntitlementRepositoryImpl) Delete(ctx context.Context, entID string) error {
	result := r.db.WithContext(ctx).Where("entitlement_id = ?", entID).Delete(&models.EntitlementModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete entitlement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("entitlement %q not found", entID))
	}
	r.logger.Infow("entitlement deleted", "entitlement_id", entID)
	return nil
}

func entitlementToModel(e *entitlement.Entitlement) *models.EntitlementModel {
	return &models.EntitlementModel{
		EntitlementID: e.ID(),
		OwnerKey:      e.OwnerKey(),
		ConsumerUUID:  e.ConsumerUUID(),
		PoolID:        e.PoolID(),
		Quantity:      e.Quantity(),
		CertSerial:    e.CertSerial(),
		AddedAt:       e.AddedAt(),
		CreatedAt:     e.CreatedAt(),
		UpdatedAt:     e.UpdatedAt(),
	}
}

func entitlementToDomain(model *models.EntitlementModel) (*entitlement.Entitlement, error) {
	return entitlement.ReconstructEntitlement(
		model.EntitlementID,
		model.OwnerKey,
		model.ConsumerUUID,
		model.PoolID,
		model.Quantity,
		model.CertSerial,
		model.AddedAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func entitlementsToDomain(ms []models.EntitlementModel) ([]*entitlement.Entitlement, error) {
	ents := make([]*entitlement.Entitlement, 0, len(ms))
	for i := range ms {
		e, err := entitlementToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		ents = append(ents, e)
	}
	return ents, nil
}
