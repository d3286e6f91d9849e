package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/infrastructure/persistence/models"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// JobRepositoryImpl implements the job.Repository interface
type JobRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB, logger logger.Interface) job.Repository {
	return &JobRepositoryImpl{db: db, logger: logger}
}

func (r *JobRepositoryImpl) Create(ctx context.Context, j *job.Job) error {
	model := jobToModel(j)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError(fmt.Sprintf("job %q already exists", j.ID()))
		}
		r.logger.Errorw("failed to create job", "job_id", j.ID(), "error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *JobRepositoryImpl) Update(ctx context.Context, j *job.Job) error {
	model := jobToModel(j)
	result := r.db.WithContext(ctx).
		Model(&models.JobModel{}).
		Where("job_id = ?", j.ID()).
		Updates(map[string]any{
			"state":          model.State,
			"result_message": model.ResultMessage,
			"start_time":     model.StartTime,
			"end_time":       model.EndTime,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("job %q not found", j.ID()))
	}
	return nil
}

func (r *JobRepositoryImpl) Get(ctx context.Context, jobID string) (*job.Job, error) {
	var model models.JobModel
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("job %q not found", jobID))
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return jobToDomain(&model)
}

func (r *JobRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*job.Job, error) {
	var ms []models.JobModel
	err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobsToDomain(ms)
}

func (r *JobRepositoryImpl) ListByState(ctx context.Context, states ...job.State) ([]*job.Job, error) {
	values := make([]string, 0, len(states))
	for _, s := range states {
		values = append(values, string(s))
	}
	var ms []models.JobModel
	err := r.db.WithContext(ctx).
		Where("state IN ?", values).
		Order("created_at").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by state: %w", err)
	}
	return jobsToDomain(ms)
}

func (r *JobRepositoryImpl) Delete(ctx context.Context, jobID string) error {
	result := r.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&models.JobModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("job %q not found", jobID))
	}
	return nil
}

func jobToModel(j *job.Job) *models.JobModel {
	return &models.JobModel{
		JobID:         j.ID(),
		TaskKey:       j.TaskKey(),
		OwnerKey:      j.OwnerKey(),
		Principal:     j.Principal(),
		State:         string(j.State()),
		ResultMessage: j.ResultMessage(),
		Arguments:     toJSON(j.Arguments()),
		StartTime:     j.StartTime(),
		EndTime:       j.EndTime(),
		CreatedAt:     j.CreatedAt(),
		UpdatedAt:     j.UpdatedAt(),
	}
}

func jobToDomain(model *models.JobModel) (*job.Job, error) {
	var arguments map[string]string
	if err := fromJSON(model.Arguments, &arguments); err != nil {
		return nil, fmt.Errorf("failed to decode job arguments: %w", err)
	}
	return job.ReconstructJob(
		model.JobID,
		model.TaskKey,
		model.OwnerKey,
		model.Principal,
		job.State(model.State),
		model.ResultMessage,
		arguments,
		model.StartTime,
		model.EndTime,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func jobsToDomain(ms []models.JobModel) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0, len(ms))
	for i := range ms {
		j, err := jobToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
