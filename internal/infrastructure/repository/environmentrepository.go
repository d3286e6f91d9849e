package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// EnvironmentRepositoryImpl implements the catalog.EnvironmentRepository interface
type EnvironmentRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewEnvironmentRepository creates a new environment repository instance
func NewEnvironmentRepository(db *gorm.DB, logger logger.Interface) catalog.EnvironmentRepository {
	return &EnvironmentRepositoryImpl{db: db, logger: logger}
}

func (r *EnvironmentRepositoryImpl) Create(ctx context.Context, env *catalog.Environment) error {
	model := environmentToModel(env)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("environment %q already exists", env.ID()))
		}
		r.logger.Errorw("failed to create environment", "environment_id", env.ID(), "error", err)
		return fmt.Errorf("failed to create environment: %w", err)
	}
	r.logger.Infow("environment created", "environment_id", env.ID(), "owner_key", env.OwnerKey())
	return nil
}

func (r *EnvironmentRepositoryImpl) Update(ctx context.Context, env *catalog.Environment) error {
	model := environmentToModel(env)
	result := r.db.WithContext(ctx).
		Model(&models.EnvironmentModel{}).
		Where("environment_id = ?", env.ID()).
		Updates(map[string]any{
			"name":     model.Name,
			"promoted": model.Promoted,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update environment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("environment %q not found", env.ID()))
	}
	return nil
}

func (r *EnvironmentRepositoryImpl) Get(ctx context.Context, id string) (*catalog.Environment, error) {
	var model models.EnvironmentModel
	if err := r.db.WithContext(ctx).Where("environment_id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("environment %q not found", id))
		}
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	return environmentToDomain(&model)
}

func (r *EnvironmentRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*catalog.Environment, error) {
	var ms []models.EnvironmentModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Order("name").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	envs := make([]*catalog.Environment, 0, len(ms))
	for i := range ms {
		env, err := environmentToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (r *EnvironmentRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("environment_id = ?", id).Delete(&models.EnvironmentModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete environment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("environment %q not found", id))
	}
	r.logger.Infow("environment deleted", "environment_id", id)
	return nil
}

func environmentToModel(env *catalog.Environment) *models.EnvironmentModel {
	return &models.EnvironmentModel{
		EnvironmentID: env.ID(),
		OwnerKey:      env.OwnerKey(),
		Name:          env.Name(),
		Promoted:      toJSON(env.PromotedContent()),
		CreatedAt:     env.CreatedAt(),
		UpdatedAt:     env.UpdatedAt(),
	}
}

func environmentToDomain(model *models.EnvironmentModel) (*catalog.Environment, error) {
	var promoted []catalog.PromotedContent
	if err := fromJSON(model.Promoted, &promoted); err != nil {
		return nil, fmt.Errorf("failed to decode promoted content: %w", err)
	}
	return catalog.ReconstructEnvironment(
		model.EnvironmentID,
		model.OwnerKey,
		model.Name,
		promoted,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
