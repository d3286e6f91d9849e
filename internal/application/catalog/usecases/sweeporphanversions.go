// Package usecases holds catalog maintenance operations. Catalog reads and
// writes themselves go through the domain repositories; only the version
// garbage collection needs an operation of its own.
package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// TaskOrphanVersionSweep is the job task key the scheduled version sweep
// runs under.
const TaskOrphanVersionSweep = "orphan_version_sweep"

// SweepOrphanVersionsUseCase garbage-collects product and content versions
// no owner links to anymore. Versions still referenced by any owner are
// never touched, so the sweep is safe to run concurrently with writers.
type SweepOrphanVersionsUseCase struct {
	productRepo catalog.ProductRepository
	contentRepo catalog.ContentRepository
	logger      logger.Interface
}

func NewSweepOrphanVersionsUseCase(
	productRepo catalog.ProductRepository,
	contentRepo catalog.ContentRepository,
	log logger.Interface,
) *SweepOrphanVersionsUseCase {
	return &SweepOrphanVersionsUseCase{
		productRepo: productRepo,
		contentRepo: contentRepo,
		logger:      log,
	}
}

// Execute removes orphaned versions and returns how many rows went away.
func (uc *SweepOrphanVersionsUseCase) Execute(ctx context.Context) (int, error) {
	products, err := uc.productRepo.DeleteOrphanedVersions(ctx)
	if err != nil {
		return 0, err
	}
	contents, err := uc.contentRepo.DeleteOrphanedVersions(ctx)
	if err != nil {
		return int(products), err
	}
	return int(products + contents), nil
}
