package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/pools/dto"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type GetPoolUseCase struct {
	poolRepo pool.Repository
	logger   logger.Interface
}

func NewGetPoolUseCase(poolRepo pool.Repository, log logger.Interface) *GetPoolUseCase {
	return &GetPoolUseCase{poolRepo: poolRepo, logger: log}
}

// Execute fetches a pool within an owner. A pool belonging to another owner
// is reported as not found.
func (uc *GetPoolUseCase) Execute(ctx context.Context, ownerKey, poolID string) (*dto.PoolResponse, error) {
	p, err := uc.poolRepo.GetForOwner(ctx, ownerKey, poolID)
	if err != nil {
		return nil, err
	}
	consumed, err := uc.poolRepo.ConsumedQuantity(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	return ToPoolResponse(p, consumed), nil
}
