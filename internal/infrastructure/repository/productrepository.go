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

// ProductRepositoryImpl implements the catalog.ProductRepository interface.
// Versions are stored content-addressed: StoreVersion is an insert-if-absent
// keyed by version hash, and owners reference versions through link rows.
type ProductRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB, logger logger.Interface) catalog.ProductRepository {
	return &ProductRepositoryImpl{db: db, logger: logger}
}

func (r *ProductRepositoryImpl) StoreVersion(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	model := &models.ProductVersionModel{
		VersionHash:         product.VersionHash(),
		ProductID:           product.ID(),
		Name:                product.Name(),
		Multiplier:          product.Multiplier(),
		Attributes:          toJSON(product.Attributes()),
		Content:             toJSON(product.Content()),
		ProvidedProductIDs:  toJSON(product.ProvidedProductIDs()),
		DependentProductIDs: toJSON(product.DependentProductIDs()),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			// Identical tuple already interned; converge on it.
			return product, nil
		}
		r.logger.Errorw("failed to store product version",
			"product_id", product.ID(), "version_hash", product.VersionHash(), "error", err)
		return nil, fmt.Errorf("failed to store product version: %w", err)
	}
	return product, nil
}

func (r *ProductRepositoryImpl) LinkOwner(ctx context.Context, ownerKey, productID, versionHash string) error {
	link := &models.OwnerProductModel{
		OwnerKey:    ownerKey,
		ProductID:   productID,
		VersionHash: versionHash,
	}
	err := r.db.WithContext(ctx).Create(link).Error
	if err == nil {
		return nil
	}
	if !errors.IsDuplicateError(err) {
		return fmt.Errorf("failed to link product to owner: %w", err)
	}
	// Relink: only this owner's view moves to the new version.
	result := r.db.WithContext(ctx).
		Model(&models.OwnerProductModel{}).
		Where("owner_key = ? AND product_id = ?", ownerKey, productID).
		Update("version_hash", versionHash)
	if result.Error != nil {
		return fmt.Errorf("failed to relink product: %w", result.Error)
	}
	return nil
}

func (r *ProductRepositoryImpl) UnlinkOwner(ctx context.Context, ownerKey, productID string) error {
	result := r.db.WithContext(ctx).
		Where("owner_key = ? AND product_id = ?", ownerKey, productID).
		Delete(&models.OwnerProductModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlink product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %q not found", productID))
	}
	return nil
}

func (r *ProductRepositoryImpl) GetForOwner(ctx context.Context, ownerKey, productID string) (*catalog.Product, error) {
	var link models.OwnerProductModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND product_id = ?", ownerKey, productID).
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("product %q not found", productID))
		}
		return nil, fmt.Errorf("failed to resolve product link: %w", err)
	}
	return r.GetVersion(ctx, link.VersionHash)
}

func (r *ProductRepositoryImpl) ListForOwner(ctx context.Context, ownerKey string) ([]*catalog.Product, error) {
	var links []models.OwnerProductModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Order("product_id").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list product links: %w", err)
	}
	products := make([]*catalog.Product, 0, len(links))
	for _, link := range links {
		product, err := r.GetVersion(ctx, link.VersionHash)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (r *ProductRepositoryImpl) GetVersion(ctx context.Context, versionHash string) (*catalog.Product, error) {
	var model models.ProductVersionModel
	err := r.db.WithContext(ctx).Where("version_hash = ?", versionHash).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("product version %q not found", versionHash))
		}
		return nil, fmt.Errorf("failed to get product version: %w", err)
	}
	return productToDomain(&model)
}

// DeleteOrphanedVersions removes versions no owner links to anymore. Run by
// the scheduler sweep; the NOT IN subquery keeps referenced versions safe
// against concurrent relinks.
func (r *ProductRepositoryImpl) DeleteOrphanedVersions(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("version_hash NOT IN (?)",
			r.db.Model(&models.OwnerProductModel{}).Select("version_hash")).
		Delete(&models.ProductVersionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphaned product versions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("orphaned product versions deleted", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

func productToDomain(model *models.ProductVersionModel) (*catalog.Product, error) {
	var (
		attrs     catalog.Attributes
		content   []catalog.ProductContent
		provided  []string
		dependent []string
	)
	if err := fromJSON(model.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode product attributes: %w", err)
	}
	if err := fromJSON(model.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to decode product content: %w", err)
	}
	if err := fromJSON(model.ProvidedProductIDs, &provided); err != nil {
		return nil, fmt.Errorf("failed to decode provided products: %w", err)
	}
	if err := fromJSON(model.DependentProductIDs, &dependent); err != nil {
		return nil, fmt.Errorf("failed to decode dependent products: %w", err)
	}
	return catalog.NewProduct(model.ProductID, model.Name, attrs, content, provided, dependent, model.Multiplier)
}
