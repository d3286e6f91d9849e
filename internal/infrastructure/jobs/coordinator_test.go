package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs []*job.Job
}

func (r *memJobRepo) Create(ctx context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, j)
	return nil
}

func (r *memJobRepo) Update(ctx context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.jobs {
		if existing.ID() == j.ID() {
			r.jobs[i] = j
			return nil
		}
	}
	return errors.NewNotFoundError("job not found")
}

func (r *memJobRepo) Get(ctx context.Context, jobID string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID() == jobID {
			return j, nil
		}
	}
	return nil, errors.NewNotFoundError("job not found")
}

func (r *memJobRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*job.Job, error) {
	return nil, nil
}

func (r *memJobRepo) ListByState(ctx context.Context, states ...job.State) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*job.Job
	for _, j := range r.jobs {
		for _, s := range states {
			if j.State() == s {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

func (r *memJobRepo) Delete(ctx context.Context, jobID string) error {
	return errors.NewNotFoundError("job not found")
}

func waitForState(t *testing.T, repo *memJobRepo, jobID string, want job.State) *job.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.Get(context.Background(), jobID)
		require.NoError(t, err)
		if j.State() == want {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	j, _ := repo.Get(context.Background(), jobID)
	t.Fatalf("job %s never reached state %s, stuck at %s", jobID, want, j.State())
	return nil
}

func TestCoordinator_ExecutesEnqueuedJob(t *testing.T) {
	repo := &memJobRepo{}
	c := NewCoordinator(repo, 2, logger.NewLogger())
	c.Register("echo", func(ctx context.Context, j *job.Job) (string, error) {
		return "echoed " + j.Argument("value"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	j, err := c.Enqueue(ctx, "echo", "acme", "admin@acme", map[string]string{"value": "hi"})
	require.NoError(t, err)

	done := waitForState(t, repo, j.ID(), job.StateFinished)
	assert.Equal(t, "echoed hi", done.ResultMessage())
	require.NotNil(t, done.StartTime())
	require.NotNil(t, done.EndTime())
}

func TestCoordinator_HandlerErrorFailsJob(t *testing.T) {
	repo := &memJobRepo{}
	c := NewCoordinator(repo, 1, logger.NewLogger())
	c.Register("boom", func(ctx context.Context, j *job.Job) (string, error) {
		return "", fmt.Errorf("handler exploded")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	j, err := c.Enqueue(ctx, "boom", "acme", "admin@acme", nil)
	require.NoError(t, err)

	failed := waitForState(t, repo, j.ID(), job.StateFailed)
	assert.Equal(t, "handler exploded", failed.ResultMessage())
}

func TestCoordinator_EnqueueRejectsUnregisteredTask(t *testing.T) {
	c := NewCoordinator(&memJobRepo{}, 1, logger.NewLogger())
	_, err := c.Enqueue(context.Background(), "ghost_task", "acme", "admin@acme", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestCoordinator_WorkersDrainQueueInOrder(t *testing.T) {
	repo := &memJobRepo{}
	c := NewCoordinator(repo, 1, logger.NewLogger())

	var mu sync.Mutex
	var order []string
	c.Register("record", func(ctx context.Context, j *job.Job) (string, error) {
		mu.Lock()
		order = append(order, j.Argument("n"))
		mu.Unlock()
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	var ids []string
	for i := 0; i < 3; i++ {
		j, err := c.Enqueue(ctx, "record", "acme", "admin@acme",
			map[string]string{"n": fmt.Sprintf("%d", i)})
		require.NoError(t, err)
		ids = append(ids, j.ID())
	}

	for _, id := range ids {
		waitForState(t, repo, id, job.StateFinished)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "1", "2"}, order)
}

func TestCoordinator_SkipsJobCanceledBeforeClaim(t *testing.T) {
	repo := &memJobRepo{}
	c := NewCoordinator(repo, 1, logger.NewLogger())
	executed := false
	c.Register("noop", func(ctx context.Context, j *job.Job) (string, error) {
		executed = true
		return "ok", nil
	})

	// enqueue before starting workers, then cancel underneath them
	j, err := c.Enqueue(context.Background(), "noop", "acme", "admin@acme", nil)
	require.NoError(t, err)
	stored, err := repo.Get(context.Background(), j.ID())
	require.NoError(t, err)
	require.NoError(t, stored.Cancel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	c.Stop()

	assert.False(t, executed)
	final, err := repo.Get(context.Background(), j.ID())
	require.NoError(t, err)
	assert.Equal(t, job.StateCanceled, final.State())
}
