package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// SubscriptionStoreImpl implements pool.SubscriptionSource over locally
// imported subscription data. Manifest import upserts rows; pool refresh
// reads them.
type SubscriptionStoreImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewSubscriptionStore creates a new subscription store instance
func NewSubscriptionStore(db *gorm.DB, logger logger.Interface) *SubscriptionStoreImpl {
	return &SubscriptionStoreImpl{db: db, logger: logger}
}

func (s *SubscriptionStoreImpl) SubscriptionsForOwner(ctx context.Context, ownerKey string) ([]*pool.Subscription, error) {
	var ms []models.SubscriptionModel
	err := s.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("subscription_id").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	subs := make([]*pool.Subscription, 0, len(ms))
	for i := range ms {
		sub, err := subscriptionToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Upsert stores or refreshes one imported subscription.
func (s *SubscriptionStoreImpl) Upsert(ctx context.Context, sub *pool.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}
	model := &models.SubscriptionModel{
		SubscriptionID:            sub.ID,
		OwnerKey:                  sub.OwnerKey,
		ProductID:                 sub.ProductID,
		Quantity:                  sub.Quantity,
		StartDate:                 sub.StartDate,
		EndDate:                   sub.EndDate,
		ProvidedProductIDs:        toJSON(sub.ProvidedProductIDs),
		DerivedProductID:          sub.DerivedProductID,
		DerivedProvidedProductIDs: toJSON(sub.DerivedProvidedProductIDs),
		ContractNumber:            sub.ContractNumber,
		AccountNumber:             sub.AccountNumber,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"owner_key", "product_id", "quantity", "start_date", "end_date",
				"provided_product_ids", "derived_product_id",
				"derived_provided_product_ids", "contract_number", "account_number",
			}),
		}).
		Create(model).Error
	if err != nil {
		s.logger.Errorw("failed to upsert subscription",
			"subscription_id", sub.ID, "owner_key", sub.OwnerKey, "error", err)
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// Remove deletes one imported subscription; the next refresh tears its
// pools down.
func (s *SubscriptionStoreImpl) Remove(ctx context.Context, subscriptionID string) error {
	result := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&models.SubscriptionModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove subscription: %w", result.Error)
	}
	return nil
}

func subscriptionToDomain(model *models.SubscriptionModel) (*pool.Subscription, error) {
	var provided, derivedProvided []string
	if err := fromJSON(model.ProvidedProductIDs, &provided); err != nil {
		return nil, fmt.Errorf("failed to decode provided products: %w", err)
	}
	if err := fromJSON(model.DerivedProvidedProductIDs, &derivedProvided); err != nil {
		return nil, fmt.Errorf("failed to decode derived provided products: %w", err)
	}
	return &pool.Subscription{
		ID:                        model.SubscriptionID,
		OwnerKey:                  model.OwnerKey,
		ProductID:                 model.ProductID,
		Quantity:                  model.Quantity,
		StartDate:                 model.StartDate,
		EndDate:                   model.EndDate,
		ProvidedProductIDs:        provided,
		DerivedProductID:          model.DerivedProductID,
		DerivedProvidedProductIDs: derivedProvided,
		ContractNumber:            model.ContractNumber,
		AccountNumber:             model.AccountNumber,
	}, nil
}
