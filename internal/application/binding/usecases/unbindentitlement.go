package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type UnbindEntitlementUseCase struct {
	entRepo  entitlement.Repository
	entitler *services.Entitler
	logger   logger.Interface
}

func NewUnbindEntitlementUseCase(
	entRepo entitlement.Repository,
	entitler *services.Entitler,
	log logger.Interface,
) *UnbindEntitlementUseCase {
	return &UnbindEntitlementUseCase{entRepo: entRepo, entitler: entitler, logger: log}
}

// Execute removes a single entitlement owned by the consumer.
func (uc *UnbindEntitlementUseCase) Execute(ctx context.Context, consumerUUID, entitlementID string) error {
	ent, err := uc.entRepo.Get(ctx, entitlementID)
	if err != nil {
		return err
	}
	if ent.ConsumerUUID() != consumerUUID {
		// Never confirm that the entitlement exists for someone else.
		return errors.NewNotFoundError("Entitlement not found")
	}
	return uc.entitler.Unbind(ctx, entitlementID)
}
