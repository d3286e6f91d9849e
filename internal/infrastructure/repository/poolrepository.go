package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// PoolRepositoryImpl implements the pool.Repository interface
type PoolRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewPoolRepository creates a new pool repository instance
func NewPoolRepository(db *gorm.DB, logger logger.Interface) pool.Repository {
	return &PoolRepositoryImpl{db: db, logger: logger}
}

func (r *PoolRepositoryImpl) Create(ctx context.Context, p *pool.Pool) error {
	model := poolToModel(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("pool %q already exists", p.ID()))
		}
		r.logger.Errorw("failed to create pool", "pool_id", p.ID(), "error", err)
		return fmt.Errorf("failed to create pool: %w", err)
	}
	r.logger.Infow("pool created",
		"pool_id", p.ID(),
		"owner_key", p.OwnerKey(),
		"type", p.Type(),
		"product_id", p.ProductID())
	return nil
}

func (r *PoolRepositoryImpl) Update(ctx context.Context, p *pool.Pool) error {
	model := poolToModel(p)
	result := r.db.WithContext(ctx).
		Model(&models.PoolModel{}).
		Where("pool_id = ?", p.ID()).
		Updates(map[string]any{
			"product_id":                   model.ProductID,
			"product_name":                 model.ProductName,
			"product_attributes":           model.ProductAttributes,
			"provided_product_ids":         model.ProvidedProductIDs,
			"derived_product_id":           model.DerivedProductID,
			"derived_provided_product_ids": model.DerivedProvidedProductIDs,
			"sub_product_id":               model.SubProductID,
			"sub_provided_product_ids":     model.SubProvidedProductIDs,
			"quantity":                     model.Quantity,
			"start_date":                   model.StartDate,
			"end_date":                     model.EndDate,
			"attributes":                   model.Attributes,
			"requires_host":                model.RequiresHost,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update pool", "pool_id", p.ID(), "error", result.Error)
		return fmt.Errorf("failed to update pool: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("pool %q not found", p.ID()))
	}
	return nil
}

func (r *PoolRepositoryImpl) Get(ctx context.Context, poolID string) (*pool.Pool, error) {
	var model models.PoolModel
	if err := r.db.WithContext(ctx).Where("pool_id = ?", poolID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("pool %q not found", poolID))
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return poolToDomain(&model)
}

// GetForOwner scopes the lookup to one owner. A pool existing in another
// owner is reported as not found, never as forbidden.
func (r *PoolRepositoryImpl) GetForOwner(ctx context.Context, ownerKey, poolID string) (*pool.Pool, error) {
	var model models.PoolModel
	err := r.db.WithContext(ctx).
		Where("pool_id = ? AND owner_key = ?", poolID, ownerKey).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("pool %q not found", poolID))
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return poolToDomain(&model)
}

func (r *PoolRepositoryImpl) List(ctx context.Context, filter pool.ListFilter) ([]*pool.Pool, error) {
	query := r.db.WithContext(ctx).Model(&models.PoolModel{})
	if filter.OwnerKey != "" {
		query = query.Where("owner_key = ?", filter.OwnerKey)
	}
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("pool_type = ?", string(filter.Type))
	}
	if filter.SourceStackID != "" {
		query = query.Where("source_stack_id = ?", filter.SourceStackID)
	}
	if filter.RequiresHost != "" {
		query = query.Where("requires_host = ?", filter.RequiresHost)
	}
	if filter.ActiveOn != nil {
		query = query.Where("start_date <= ? AND end_date >= ?", *filter.ActiveOn, *filter.ActiveOn)
	}
	if !filter.IncludeDerived && filter.Type == "" {
		query = query.Where("pool_type NOT IN ?", []string{
			string(pool.TypeEntitlementDerived),
			string(pool.TypeStackDerived),
		})
	}

	var ms []models.PoolModel
	if err := query.Order("pool_id").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	return poolsToDomain(ms)
}

func (r *PoolRepositoryImpl) ListBySubscription(ctx context.Context, subscriptionID string) ([]*pool.Pool, error) {
	var ms []models.PoolModel
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("pool_id").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pools by subscription: %w", err)
	}
	return poolsToDomain(ms)
}

func (r *PoolRepositoryImpl) FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*pool.Pool, error) {
	var model models.PoolModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND pool_type = ? AND source_consumer_uuid = ? AND source_stack_id = ?",
			ownerKey, string(pool.TypeStackDerived), hostUUID, stackID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find stack derived pool: %w", err)
	}
	return poolToDomain(&model)
}

func (r *PoolRepositoryImpl) ListExpired(ctx context.Context, cutoff time.Time) ([]*pool.Pool, error) {
	var ms []models.PoolModel
	if err := r.db.WithContext(ctx).Where("end_date < ?", cutoff).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired pools: %w", err)
	}
	return poolsToDomain(ms)
}

func (r *PoolRepositoryImpl) Delete(ctx context.Context, poolID string) error {
	result := r.db.WithContext(ctx).Where("pool_id = ?", poolID).Delete(&models.PoolModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete pool: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("pool %q not found", poolID))
	}
	r.logger.Infow("pool deleted", "pool_id", poolID)
	return nil
}

func (r *PoolRepositoryImpl) ConsumedQuantity(ctx context.Context, poolID string) (int64, error) {
	var consumed int64
	err := r.db.WithContext(ctx).
		Model(&models.EntitlementModel{}).
		Where("pool_id = ?", poolID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&consumed).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum pool consumption: %w", err)
	}
	return consumed, nil
}

func poolToModel(p *pool.Pool) *models.PoolModel {
	return &models.PoolModel{
		PoolID:                    p.ID(),
		OwnerKey:                  p.OwnerKey(),
		PoolType:                  string(p.Type()),
		ProductID:                 p.ProductID(),
		ProductName:               p.ProductName(),
		ProductAttributes:         toJSON(p.ProductAttributes()),
		ProvidedProductIDs:        toJSON(p.ProvidedProductIDs()),
		DerivedProductID:          p.DerivedProductID(),
		DerivedProvidedProductIDs: toJSON(p.DerivedProvidedProductIDs()),
		SubProductID:              p.SubProductID(),
		SubProvidedProductIDs:     toJSON(p.SubProvidedProductIDs()),
		Quantity:                  p.Quantity(),
		StartDate:                 p.StartDate(),
		EndDate:                   p.EndDate(),
		Attributes:                toJSON(p.Attributes()),
		SubscriptionID:            p.SubscriptionID(),
		SourceStackID:             p.SourceStackID(),
		SourceConsumerUUID:        p.SourceConsumerUUID(),
		SourceEntitlementID:       p.SourceEntitlementID(),
		RequiresHost:              p.RequiresHost(),
		CreatedAt:                 p.CreatedAt(),
		UpdatedAt:                 p.UpdatedAt(),
	}
}

func poolToDomain(model *models.PoolModel) (*pool.Pool, error) {
	var (
		productAttrs    catalog.Attributes
		attrs           catalog.Attributes
		provided        []string
		derivedProvided []string
		subProvided     []string
	)
	if err := fromJSON(model.ProductAttributes, &productAttrs); err != nil {
		return nil, fmt.Errorf("failed to decode product attributes: %w", err)
	}
	if err := fromJSON(model.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode pool attributes: %w", err)
	}
	if err := fromJSON(model.ProvidedProductIDs, &provided); err != nil {
		return nil, fmt.Errorf("failed to decode provided products: %w", err)
	}
	if err := fromJSON(model.DerivedProvidedProductIDs, &derivedProvided); err != nil {
		return nil, fmt.Errorf("failed to decode derived provided products: %w", err)
	}
	if err := fromJSON(model.SubProvidedProductIDs, &subProvided); err != nil {
		return nil, fmt.Errorf("failed to decode sub provided products: %w", err)
	}
	return pool.NewPool(pool.PoolParams{
		ID:                        model.PoolID,
		OwnerKey:                  model.OwnerKey,
		Type:                      pool.PoolType(model.PoolType),
		ProductID:                 model.ProductID,
		ProductName:               model.ProductName,
		ProductAttributes:         productAttrs,
		ProvidedProductIDs:        provided,
		DerivedProductID:          model.DerivedProductID,
		DerivedProvidedProductIDs: derivedProvided,
		SubProductID:              model.SubProductID,
		SubProvidedProductIDs:     subProvided,
		Quantity:                  model.Quantity,
		StartDate:                 model.StartDate,
		EndDate:                   model.EndDate,
		Attributes:                attrs,
		SubscriptionID:            model.SubscriptionID,
		SourceStackID:             model.SourceStackID,
		SourceConsumerUUID:        model.SourceConsumerUUID,
		SourceEntitlementID:       model.SourceEntitlementID,
		CreatedAt:                 model.CreatedAt,
		UpdatedAt:                 model.UpdatedAt,
	})
}

func poolsToDomain(ms []models.PoolModel) ([]*pool.Pool, error) {
	pools := make([]*pool.Pool, 0, len(ms))
	for i := range ms {
		p, err := poolToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, nil
}
