package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ActivationKeyRepositoryImpl implements the consumer.ActivationKeyRepository
// interface.
type ActivationKeyRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewActivationKeyRepository creates a new activation key repository instance
func NewActivationKeyRepository(db *gorm.DB, logger logger.Interface) consumer.ActivationKeyRepository {
	return &ActivationKeyRepositoryImpl{db: db, logger: logger}
}

func (r *ActivationKeyRepositoryImpl) Create(ctx context.Context, key *consumer.ActivationKey) error {
	model := activationKeyToModel(key)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf(
				"activation key %q already exists for owner %q", key.Name(), key.OwnerKey()))
		}
		r.logger.Errorw("failed to create activation key", "key_id", key.KeyID(), "error", err)
		return fmt.Errorf("failed to create activation key: %w", err)
	}
	if err := key.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set activation key ID: %w", err)
	}
	r.logger.Infow("activation key created",
		"key_id", key.KeyID(), "owner_key", key.OwnerKey(), "name", key.Name())
	return nil
}

func (r *ActivationKeyRepositoryImpl) Update(ctx context.Context, key *consumer.ActivationKey) error {
	model := activationKeyToModel(key)
	result := r.db.WithContext(ctx).
		Model(&models.ActivationKeyModel{}).
		Where("key_id = ?", key.KeyID()).
		Updates(map[string]any{
			"name":          model.Name,
			"pools":         model.Pools,
			"auto_attach":   model.AutoAttach,
			"service_level": model.ServiceLevel,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update activation key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("activation key %q not found", key.KeyID()))
	}
	return nil
}

func (r *ActivationKeyRepositoryImpl) GetByName(ctx context.Context, ownerKey, name string) (*consumer.ActivationKey, error) {
	var model models.ActivationKeyModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND name = ?", ownerKey, name).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf(
				"activation key %q not found for owner %q", name, ownerKey))
		}
		return nil, fmt.Errorf("failed to get activation key: %w", err)
	}
	return activationKeyToDomain(&model)
}

func (r *ActivationKeyRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.ActivationKey, error) {
	var ms []models.ActivationKeyModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Order("name").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list activation keys: %w", err)
	}
	keys := make([]*consumer.ActivationKey, 0, len(ms))
	for i := range ms {
		key, err := activationKeyToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *ActivationKeyRepositoryImpl) Delete(ctx context.Context, keyID string) error {
	result := r.db.WithContext(ctx).Where("key_id = ?", keyID).Delete(&models.ActivationKeyModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete activation key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("activation key %q not found", keyID))
	}
	r.logger.Infow("activation key deleted", "key_id", keyID)
	return nil
}

func activationKeyToModel(key *consumer.ActivationKey) *models.ActivationKeyModel {
	return &models.ActivationKeyModel{
		KeyID:        key.KeyID(),
		OwnerKey:     key.OwnerKey(),
		Name:         key.Name(),
		Pools:        toJSON(key.Pools()),
		AutoAttach:   key.AutoAttach(),
		ServiceLevel: key.ServiceLevel(),
		CreatedAt:    key.CreatedAt(),
		UpdatedAt:    key.UpdatedAt(),
	}
}

func activationKeyToDomain(model *models.ActivationKeyModel) (*consumer.ActivationKey, error) {
	var pools []consumer.ActivationKeyPool
	if err := fromJSON(model.Pools, &pools); err != nil {
		return nil, fmt.Errorf("failed to decode activation key pools: %w", err)
	}
	return consumer.ReconstructActivationKey(consumer.ActivationKeyReconstructParams{
		ID:           model.ID,
		KeyID:        model.KeyID,
		OwnerKey:     model.OwnerKey,
		Name:         model.Name,
		Pools:        pools,
		AutoAttach:   model.AutoAttach,
		ServiceLevel: model.ServiceLevel,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	})
}
