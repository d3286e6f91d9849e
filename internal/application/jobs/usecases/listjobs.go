package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/jobs/dto"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type ListJobsUseCase struct {
	jobRepo job.Repository
	logger  logger.Interface
}

func NewListJobsUseCase(jobRepo job.Repository, log logger.Interface) *ListJobsUseCase {
	return &ListJobsUseCase{jobRepo: jobRepo, logger: log}
}

// Execute lists an owner's jobs visible to the principal.
func (uc *ListJobsUseCase) Execute(ctx context.Context, principal dto.Principal, ownerKey string) ([]dto.JobResponse, error) {
	jobs, err := uc.jobRepo.ListByOwner(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		if !j.AccessibleBy(principal.Name, principal.OwnerKey, principal.SuperAdmin) {
			continue
		}
		responses = append(responses, *ToJobResponse(j))
	}
	return responses, nil
}
