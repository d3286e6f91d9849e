package job

import "context"

// Repository persists async job statuses.
type Repository interface {
	Create(ctx context.Context, j *Job) error
	Update(ctx context.Context, j *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]*Job, error)
	// ListByState returns jobs in the given states, oldest first.
	ListByState(ctx context.Context, states ...State) ([]*Job, error)
	Delete(ctx context.Context, jobID string) error
}
