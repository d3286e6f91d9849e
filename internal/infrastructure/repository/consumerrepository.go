package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ConsumerRepositoryImpl implements the consumer.Repository interface.
// Unregistered consumers are soft-deleted so later operations against them
// surface as gone rather than not found.
type ConsumerRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewConsumerRepository creates a new consumer repository instance
func NewConsumerRepository(db *gorm.DB, logger logger.Interface) consumer.Repository {
	return &ConsumerRepositoryImpl{db: db, logger: logger}
}

func (r *ConsumerRepositoryImpl) Create(ctx context.Context, c *consumer.Consumer) error {
	model := consumerToModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("consumer %q already exists", c.UUID()))
		}
		r.logger.Errorw("failed to create consumer", "uuid", c.UUID(), "error", err)
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	if err := c.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set consumer ID: %w", err)
	}
	r.logger.Infow("consumer created",
		"uuid", c.UUID(), "owner_key", c.OwnerKey(), "type", c.Type())
	return nil
}

func (r *ConsumerRepositoryImpl) Update(ctx context.Context, c *consumer.Consumer) error {
	model := consumerToModel(c)
	result := r.db.WithContext(ctx).
		Model(&models.ConsumerModel{}).
		Where("uuid = ?", c.UUID()).
		Updates(map[string]any{
			"name":                model.Name,
			"facts":               model.Facts,
			"installed_products":  model.InstalledProducts,
			"guests":              model.Guests,
			"host_uuid":           model.HostUUID,
			"hypervisor_id":       model.HypervisorID,
			"virt_uuid":           model.VirtUUID,
			"environment_ids":     model.EnvironmentIDs,
			"capabilities":        model.Capabilities,
			"capability_override": model.CapabilityOverride,
			"autoheal":            model.Autoheal,
			"service_level":       model.ServiceLevel,
			"content_access_mode": model.ContentAccessMode,
			"last_checkin":        model.LastCheckin,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update consumer", "uuid", c.UUID(), "error", result.Error)
		return fmt.Errorf("failed to update consumer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingError(ctx, c.UUID())
	}
	return nil
}

func (r *ConsumerRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, r.missingError(ctx, uuid)
		}
		return nil, fmt.Errorf("failed to get consumer: %w", err)
	}
	return consumerToDomain(&model)
}

func (r *ConsumerRepositoryImpl) GetByUUIDForOwner(ctx context.Context, ownerKey, uuid string) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND owner_key = ?", uuid, ownerKey).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Cross-owner lookups report not found without consulting the
			// soft-delete state, so nothing about other owners leaks.
			return nil, errors.NewNotFoundError(fmt.Sprintf("consumer %q not found", uuid))
		}
		return nil, fmt.Errorf("failed to get consumer: %w", err)
	}
	return consumerToDomain(&model)
}

func (r *ConsumerRepositoryImpl) FindHypervisor(ctx context.Context, ownerKey, hypervisorID string) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND consumer_type = ? AND hypervisor_id = ?",
			ownerKey, string(consumer.TypeHypervisor), hypervisorID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find hypervisor: %w", err)
	}
	return consumerToDomain(&model)
}

func (r *ConsumerRepositoryImpl) FindGuestHost(ctx context.Context, ownerKey, guestUUID string) (*consumer.Consumer, error) {
	var guest models.ConsumerModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND virt_uuid = ?", ownerKey, guestUUID).
		First(&guest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	if guest.HostUUID == "" {
		return nil, nil
	}
	return r.GetByUUID(ctx, guest.HostUUID)
}

func (r *ConsumerRepositoryImpl) FindGuestConsumer(ctx context.Context, ownerKey, virtUUID string) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND virt_uuid = ?", ownerKey, virtUUID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find guest consumer: %w", err)
	}
	return consumerToDomain(&model)
}

func (r *ConsumerRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.Consumer, error) {
	var ms []models.ConsumerModel
	if err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Order("uuid").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list consumers: %w", err)
	}
	consumers := make([]*consumer.Consumer, 0, len(ms))
	for i := range ms {
		c, err := consumerToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, c)
	}
	return consumers, nil
}

func (r *ConsumerRepositoryImpl) Delete(ctx context.Context, uuid string) error {
	result := r.db.WithContext(ctx).Where("uuid = ?", uuid).Delete(&models.ConsumerModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete consumer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingError(ctx, uuid)
	}
	r.logger.Infow("consumer unregistered", "uuid", uuid)
	return nil
}

// missingError distinguishes a consumer that unregistered (gone) from one
// that never existed (not found).
func (r *ConsumerRepositoryImpl) missingError(ctx context.Context, uuid string) error {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.ConsumerModel{}).
		Where("uuid = ? AND deleted_at IS NOT NULL", uuid).
		Count(&count).Error
	if err == nil && count > 0 {
		return errors.NewGoneError(fmt.Sprintf("consumer %q is no longer registered", uuid))
	}
	return errors.NewNotFoundError(fmt.Sprintf("consumer %q not found", uuid))
}

func consumerToModel(c *consumer.Consumer) *models.ConsumerModel {
	facts := c.Facts()
	var lastCheckin *time.Time
	if !c.LastCheckin().IsZero() {
		t := c.LastCheckin()
		lastCheckin = &t
	}
	return &models.ConsumerModel{
		ID:                 c.ID(),
		UUID:               c.UUID(),
		Name:               c.Name(),
		OwnerKey:           c.OwnerKey(),
		ConsumerType:       string(c.Type()),
		Facts:              toJSON(facts),
		InstalledProducts:  toJSON(c.InstalledProducts()),
		Guests:             toJSON(c.Guests()),
		HostUUID:           c.HostUUID(),
		HypervisorID:       facts[consumer.FactHypervisorID],
		VirtUUID:           facts[consumer.FactVirtUUID],
		EnvironmentIDs:     toJSON(c.EnvironmentIDs()),
		Capabilities:       toJSON(c.Capabilities()),
		CapabilityOverride: c.CapabilityOverride(),
		Autoheal:           c.Autoheal(),
		ServiceLevel:       c.ServiceLevel(),
		ContentAccessMode:  c.ContentAccessMode(),
		LastCheckin:        lastCheckin,
		CreatedAt:          c.CreatedAt(),
		UpdatedAt:          c.UpdatedAt(),
	}
}

func consumerToDomain(model *models.ConsumerModel) (*consumer.Consumer, error) {
	var (
		facts     consumer.Facts
		installed []consumer.InstalledProduct
		guests    consumer.GuestList
		envIDs    []string
		caps      []string
	)
	if err := fromJSON(model.Facts, &facts); err != nil {
		return nil, fmt.Errorf("failed to decode consumer facts: %w", err)
	}
	if err := fromJSON(model.InstalledProducts, &installed); err != nil {
		return nil, fmt.Errorf("failed to decode installed products: %w", err)
	}
	if err := fromJSON(model.Guests, &guests); err != nil {
		return nil, fmt.Errorf("failed to decode guest list: %w", err)
	}
	if err := fromJSON(model.EnvironmentIDs, &envIDs); err != nil {
		return nil, fmt.Errorf("failed to decode environment IDs: %w", err)
	}
	if err := fromJSON(model.Capabilities, &caps); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities: %w", err)
	}
	var lastCheckin time.Time
	if model.LastCheckin != nil {
		lastCheckin = *model.LastCheckin
	}
	return consumer.ReconstructConsumer(consumer.ConsumerReconstructParams{
		ID:                 model.ID,
		UUID:               model.UUID,
		Name:               model.Name,
		OwnerKey:           model.OwnerKey,
		Type:               consumer.Type(model.ConsumerType),
		Facts:              facts,
		InstalledProducts:  installed,
		Guests:             guests,
		HostUUID:           model.HostUUID,
		EnvironmentIDs:     envIDs,
		Capabilities:       caps,
		CapabilityOverride: model.CapabilityOverride,
		Autoheal:           model.Autoheal,
		ServiceLevel:       model.ServiceLevel,
		ContentAccessMode:  model.ContentAccessMode,
		LastCheckin:        lastCheckin,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	})
}
