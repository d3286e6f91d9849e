package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// CertificateRepositoryImpl implements the certificate.Repository interface
type CertificateRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewCertificateRepository creates a new certificate repository instance
func NewCertificateRepository(db *gorm.DB, logger logger.Interface) certificate.Repository {
	return &CertificateRepositoryImpl{db: db, logger: logger}
}

func (r *CertificateRepositoryImpl) Create(ctx context.Context, c *certificate.Certificate) error {
	model := certificateToModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("certificate serial %d already exists", c.Serial()))
		}
		r.logger.Errorw("failed to create certificate",
			"serial", c.Serial(), "consumer_uuid", c.ConsumerUUID(), "error", err)
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	if err := c.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set certificate ID: %w", err)
	}
	return nil
}

func (r *CertificateRepositoryImpl) Update(ctx context.Context, c *certificate.Certificate) error {
	result := r.db.WithContext(ctx).
		Model(&models.CertificateModel{}).
		Where("id = ?", c.ID()).
		Updates(map[string]any{
			"serial":  c.Serial(),
			"payload": c.Payload(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update certificate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("certificate %d not found", c.ID()))
	}
	return nil
}

func (r *CertificateRepositoryImpl) GetBySerial(ctx context.Context, serial int64) (*certificate.Certificate, error) {
	var model models.CertificateModel
	if err := r.db.WithContext(ctx).Where("serial = ?", serial).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("certificate serial %d not found", serial))
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return certificateToDomain(&model)
}

func (r *CertificateRepositoryImpl) GetByEntitlement(ctx context.Context, entitlementID string) (*certificate.Certificate, error) {
	var model models.CertificateModel
	err := r.db.WithContext(ctx).
		Where("entitlement_id = ? AND cert_type = ?", entitlementID, string(certificate.TypeEntitlement)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("certificate for entitlement %q not found", entitlementID))
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return certificateToDomain(&model)
}

func (r *CertificateRepositoryImpl) GetContentAccess(ctx context.Context, consumerUUID string) (*certificate.Certificate, error) {
	var model models.CertificateModel
	err := r.db.WithContext(ctx).
		Where("consumer_uuid = ? AND cert_type = ?", consumerUUID, string(certificate.TypeContentAccess)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content access certificate: %w", err)
	}
	return certificateToDomain(&model)
}

func (r *CertificateRepositoryImpl) ListByConsumer(ctx context.Context, consumerUUID string) ([]*certificate.Certificate, error) {
	var ms []models.CertificateModel
	err := r.db.WithContext(ctx).
		Where("consumer_uuid = ?", consumerUUID).
		Order("serial").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	certs := make([]*certificate.Certificate, 0, len(ms))
	for i := range ms {
		c, err := certificateToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	return certs, nil
}

func (r *CertificateRepositoryImpl) DeleteByEntitlement(ctx context.Context, entitlementID string) error {
	result := r.db.WithContext(ctx).
		Where("entitlement_id = ?", entitlementID).
		Delete(&models.CertificateModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete certificate: %w", result.Error)
	}
	return nil
}

func (r *CertificateRepositoryImpl) DeleteByConsumer(ctx context.Context, consumerUUID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("consumer_uuid = ?", consumerUUID).
		Delete(&models.CertificateModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete certificates: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func certificateToModel(c *certificate.Certificate) *models.CertificateModel {
	return &models.CertificateModel{
		Serial:        c.Serial(),
		CertType:      string(c.Type()),
		ConsumerUUID:  c.ConsumerUUID(),
		EntitlementID: c.EntitlementID(),
		KeyID:         c.KeyID(),
		Payload:       c.Payload(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
	}
}

func certificateToDomain(model *models.CertificateModel) (*certificate.Certificate, error) {
	return certificate.ReconstructCertificate(
		model.ID,
		model.Serial,
		certificate.CertType(model.CertType),
		model.ConsumerUUID,
		model.EntitlementID,
		model.KeyID,
		model.Payload,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
