package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type DeletePoolUseCase struct {
	poolRepo pool.Repository
	entitler *services.Entitler
	logger   logger.Interface
}

func NewDeletePoolUseCase(poolRepo pool.Repository, entitler *services.Entitler, log logger.Interface) *DeletePoolUseCase {
	return &DeletePoolUseCase{poolRepo: poolRepo, entitler: entitler, logger: log}
}

// Execute deletes a pool within an owner, revoking its entitlements and any
// derived pools they fed. Cross-owner access reports not found.
func (uc *DeletePoolUseCase) Execute(ctx context.Context, ownerKey, poolID string) error {
	p, err := uc.poolRepo.GetForOwner(ctx, ownerKey, poolID)
	if err != nil {
		return err
	}
	if err := uc.entitler.DeletePoolCascade(ctx, p); err != nil {
		return err
	}
	uc.logger.Infow("pool deleted", "owner_key", ownerKey, "pool_id", poolID)
	return nil
}
