package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/jobs/dto"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type CancelJobUseCase struct {
	jobRepo job.Repository
	logger  logger.Interface
}

func NewCancelJobUseCase(jobRepo job.Repository, log logger.Interface) *CancelJobUseCase {
	return &CancelJobUseCase{jobRepo: jobRepo, logger: log}
}

// Execute cancels a queued or running job. Canceling a job that already
// reached a terminal state is rejected.
func (uc *CancelJobUseCase) Execute(ctx context.Context, principal dto.Principal, jobID string) (*dto.JobResponse, error) {
	j, err := uc.jobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.AccessibleBy(principal.Name, principal.OwnerKey, principal.SuperAdmin) {
		return nil, errors.NewForbiddenError("You do not have access to this job")
	}
	if err := j.Cancel(); err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}
	if err := uc.jobRepo.Update(ctx, j); err != nil {
		return nil, err
	}
	uc.logger.Infow("job canceled", "job_id", jobID, "principal", principal.Name)
	return ToJobResponse(j), nil
}
