package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/domain/job"
)

// JobQueue enqueues asynchronous work. Implemented by the job coordinator.
type JobQueue interface {
	Enqueue(ctx context.Context, taskKey, ownerKey, principal string, arguments map[string]string) (*job.Job, error)
}

// Task keys the binding use cases enqueue.
const (
	TaskAutoBind = "auto_bind"
)
