package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/biztime"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// SweepExpiredPoolsUseCase deletes pools whose end date has passed,
// cascading the revocation of every entitlement held against them. Run
// periodically by the scheduler.
type SweepExpiredPoolsUseCase struct {
	poolRepo pool.Repository
	entitler *services.Entitler
	logger   logger.Interface
}

func NewSweepExpiredPoolsUseCase(
	poolRepo pool.Repository,
	entitler *services.Entitler,
	log logger.Interface,
) *SweepExpiredPoolsUseCase {
	return &SweepExpiredPoolsUseCase{
		poolRepo: poolRepo,
		entitler: entitler,
		logger:   log,
	}
}

// Execute removes expired pools and returns how many were deleted.
func (uc *SweepExpiredPoolsUseCase) Execute(ctx context.Context) (int, error) {
	expired, err := uc.poolRepo.ListExpired(ctx, biztime.NowUTC())
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, p := range expired {
		if err := uc.entitler.DeletePoolCascade(ctx, p); err != nil {
			uc.logger.Errorw("failed to delete expired pool",
				"pool_id", p.ID(), "owner", p.OwnerKey(), "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
