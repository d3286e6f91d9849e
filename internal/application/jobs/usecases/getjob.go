package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/jobs/dto"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type GetJobUseCase struct {
	jobRepo job.Repository
	logger  logger.Interface
}

func NewGetJobUseCase(jobRepo job.Repository, log logger.Interface) *GetJobUseCase {
	return &GetJobUseCase{jobRepo: jobRepo, logger: log}
}

// Execute fetches a job's status, enforcing principal and owner visibility.
func (uc *GetJobUseCase) Execute(ctx context.Context, principal dto.Principal, jobID string) (*dto.JobResponse, error) {
	j, err := uc.jobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.AccessibleBy(principal.Name, principal.OwnerKey, principal.SuperAdmin) {
		return nil, errors.NewForbiddenError("You do not have access to this job")
	}
	return ToJobResponse(j), nil
}

// ToJobResponse maps a job to its caller-visible view.
func ToJobResponse(j *job.Job) *dto.JobResponse {
	return &dto.JobResponse{
		ID:            j.ID(),
		TaskKey:       j.TaskKey(),
		OwnerKey:      j.OwnerKey(),
		Principal:     j.Principal(),
		State:         string(j.State()),
		ResultMessage: j.ResultMessage(),
		Arguments:     j.Arguments(),
		StartTime:     j.StartTime(),
		EndTime:       j.EndTime(),
		CreatedAt:     j.CreatedAt(),
	}
}
