package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// OwnerRepositoryImpl implements the catalog.OwnerRepository interface
type OwnerRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewOwnerRepository creates a new owner repository instance
func NewOwnerRepository(db *gorm.DB, logger logger.Interface) catalog.OwnerRepository {
	return &OwnerRepositoryImpl{db: db, logger: logger}
}

func (r *OwnerRepositoryImpl) Create(ctx context.Context, owner *catalog.Owner) error {
	model := ownerToModel(owner)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("owner %q already exists", owner.Key()))
		}
		r.logger.Errorw("failed to create owner", "owner_key", owner.Key(), "error", err)
		return fmt.Errorf("failed to create owner: %w", err)
	}
	if err := owner.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set owner ID: %w", err)
	}
	r.logger.Infow("owner created", "owner_key", owner.Key())
	return nil
}

func (r *OwnerRepositoryImpl) Update(ctx context.Context, owner *catalog.Owner) error {
	model := ownerToModel(owner)
	result := r.db.WithContext(ctx).
		Model(&models.OwnerModel{}).
		Where("owner_key = ?", owner.Key()).
		Updates(map[string]any{
			"display_name":             model.DisplayName,
			"content_access_mode":      model.ContentAccessMode,
			"content_access_mode_list": model.ContentAccessModeList,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update owner", "owner_key", owner.Key(), "error", result.Error)
		return fmt.Errorf("failed to update owner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("owner %q not found", owner.Key()))
	}
	return nil
}

func (r *OwnerRepositoryImpl) GetByKey(ctx context.Context, key string) (*catalog.Owner, error) {
	var model models.OwnerModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", key).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("owner %q not found", key))
		}
		r.logger.Errorw("failed to get owner", "owner_key", key, "error", err)
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}
	return ownerToDomain(&model)
}

func (r *OwnerRepositoryImpl) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("owner_key = ?", key).Delete(&models.OwnerModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete owner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("owner %q not found", key))
	}
	r.logger.Infow("owner deleted", "owner_key", key)
	return nil
}

func (r *OwnerRepositoryImpl) List(ctx context.Context) ([]*catalog.Owner, error) {
	var ms []models.OwnerModel
	if err := r.db.WithContext(ctx).Order("owner_key").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	owners := make([]*catalog.Owner, 0, len(ms))
	for i := range ms {
		owner, err := ownerToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

func ownerToModel(owner *catalog.Owner) *models.OwnerModel {
	return &models.OwnerModel{
		ID:                    owner.ID(),
		OwnerKey:              owner.Key(),
		DisplayName:           owner.DisplayName(),
		ContentAccessMode:     owner.ContentAccessMode(),
		ContentAccessModeList: strings.Join(owner.ContentAccessModeList(), ","),
		CreatedAt:             owner.CreatedAt(),
		UpdatedAt:             owner.UpdatedAt(),
	}
}

func ownerToDomain(model *models.OwnerModel) (*catalog.Owner, error) {
	var modeList []string
	if model.ContentAccessModeList != "" {
		modeList = strings.Split(model.ContentAccessModeList, ",")
	}
	return catalog.ReconstructOwner(
		model.ID,
		model.OwnerKey,
		model.DisplayName,
		model.ContentAccessMode,
		modeList,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
