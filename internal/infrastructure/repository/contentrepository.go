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

// ContentRepositoryImpl implements the catalog.ContentRepository interface
// with the same content-addressed storage scheme as products.
type ContentRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewContentRepository creates a new content repository instance
func NewContentRepository(db *gorm.DB, logger logger.Interface) catalog.ContentRepository {
	return &ContentRepositoryImpl{db: db, logger: logger}
}

func (r *ContentRepositoryImpl) StoreVersion(ctx context.Context, content *catalog.Content) (*catalog.Content, error) {
	params := content.Params()
	model := &models.ContentVersionModel{
		VersionHash:        content.VersionHash(),
		ContentID:          params.ID,
		Label:              params.Label,
		Name:               params.Name,
		ContentType:        params.Type,
		Vendor:             params.Vendor,
		ContentURL:         params.ContentURL,
		GpgURL:             params.GpgURL,
		Arches:             params.Arches,
		RequiredTags:       params.RequiredTags,
		MetadataExpire:     params.MetadataExpire,
		ModifiedProductIDs: toJSON(params.ModifiedProductIDs),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return content, nil
		}
		r.logger.Errorw("failed to store content version",
			"content_id", params.ID, "version_hash", content.VersionHash(), "error", err)
		return nil, fmt.Errorf("failed to store content version: %w", err)
	}
	return content, nil
}

func (r *ContentRepositoryImpl) LinkOwner(ctx context.Context, ownerKey, contentID, versionHash string) error {
	link := &models.OwnerContentModel{
		OwnerKey:    ownerKey,
		ContentID:   contentID,
		VersionHash: versionHash,
	}
	err := r.db.WithContext(ctx).Create(link).Error
	if err == nil {
		return nil
	}
	if !errors.IsDuplicateError(err) {
		return fmt.Errorf("failed to link content to owner: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&models.OwnerContentModel{}).
		Where("owner_key = ? AND content_id = ?", ownerKey, contentID).
		Update("version_hash", versionHash)
	if result.Error != nil {
		return fmt.Errorf("failed to relink content: %w", result.Error)
	}
	return nil
}

func (r *ContentRepositoryImpl) UnlinkOwner(ctx context.Context, ownerKey, contentID string) error {
	result := r.db.WithContext(ctx).
		Where("owner_key = ? AND content_id = ?", ownerKey, contentID).
		Delete(&models.OwnerContentModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlink content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("content %q not found", contentID))
	}
	return nil
}

func (r *ContentRepositoryImpl) GetForOwner(ctx context.Context, ownerKey, contentID string) (*catalog.Content, error) {
	var link models.OwnerContentModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND content_id = ?", ownerKey, contentID).
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("content %q not found", contentID))
		}
		return nil, fmt.Errorf("failed to resolve content link: %w", err)
	}
	return r.getVersion(ctx, link.VersionHash)
}

func (r *ContentRepositoryImpl) ListForOwner(ctx context.Context, ownerKey string) ([]*catalog.Content, error) {
	var links []models.OwnerContentModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Order("content_id").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list content links: %w", err)
	}
	contents := make([]*catalog.Content, 0, len(links))
	for _, link := range links {
		content, err := r.getVersion(ctx, link.VersionHash)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (r *ContentRepositoryImpl) DeleteOrphanedVersions(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("version_hash NOT IN (?)",
			r.db.Model(&models.OwnerContentModel{}).Select("version_hash")).
		Delete(&models.ContentVersionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphaned content versions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("orphaned content versions deleted", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

func (r *ContentRepositoryImpl) getVersion(ctx context.Context, versionHash string) (*catalog.Content, error) {
	var model models.ContentVersionModel
	err := r.db.WithContext(ctx).Where("version_hash = ?", versionHash).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("content version %q not found", versionHash))
		}
		return nil, fmt.Errorf("failed to get content version: %w", err)
	}
	return contentToDomain(&model)
}

func contentToDomain(model *models.ContentVersionModel) (*catalog.Content, error) {
	var modified []string
	if err := fromJSON(model.ModifiedProductIDs, &modified); err != nil {
		return nil, fmt.Errorf("failed to decode modified products: %w", err)
	}
	return catalog.NewContent(catalog.ContentParams{
		ID:                 model.ContentID,
		Label:              model.Label,
		Name:               model.Name,
		Type:               model.ContentType,
		Vendor:             model.Vendor,
		ContentURL:         model.ContentURL,
		GpgURL:             model.GpgURL,
		Arches:             model.Arches,
		ModifiedProductIDs: modified,
		RequiredTags:       model.RequiredTags,
		MetadataExpire:     model.MetadataExpire,
	})
}
