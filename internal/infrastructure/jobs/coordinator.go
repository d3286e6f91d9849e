// Package jobs runs the async job coordinator: a DB-backed queue with a
// fixed worker pool executing registered task handlers.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/goroutine"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

const pollInterval = 2 * time.Second

// Handler executes one task kind and returns a human-readable result message.
type Handler func(ctx context.Context, j *job.Job) (string, error)

// Coordinator owns the job queue and its worker pool. Jobs survive process
// restarts because state lives in the jobs table, not in memory.
type Coordinator struct {
	jobRepo  job.Repository
	handlers map[string]Handler
	workers  int
	logger   logger.Interface

	claimMu sync.Mutex
	wake    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator with the given worker count.
func NewCoordinator(jobRepo job.Repository, workers int, log logger.Interface) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		jobRepo:  jobRepo,
		handlers: make(map[string]Handler),
		workers:  workers,
		logger:   log,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Register binds a task key to its handler. Must be called before Start.
func (c *Coordinator) Register(taskKey string, handler Handler) {
	c.handlers[taskKey] = handler
}

// Enqueue persists a new job in CREATED state and wakes the worker pool.
func (c *Coordinator) Enqueue(ctx context.Context, taskKey, ownerKey, principal string, arguments map[string]string) (*job.Job, error) {
	if _, ok := c.handlers[taskKey]; !ok {
		return nil, fmt.Errorf("no handler registered for task %q", taskKey)
	}

	j, err := job.NewJob(taskKey, ownerKey, principal, arguments)
	if err != nil {
		return nil, err
	}
	if err := c.jobRepo.Create(ctx, j); err != nil {
		return nil, err
	}

	c.logger.Infow("job enqueued", "job_id", j.ID(), "task", taskKey, "owner", ownerKey)

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return j, nil
}

// Start launches the worker pool. Workers poll for CREATED jobs and also
// wake immediately on local enqueues.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		name := fmt.Sprintf("job-worker-%d", i)
		goroutine.SafeGo(c.logger, name, func() {
			defer c.wg.Done()
			c.workerLoop(ctx)
		})
	}
	c.logger.Infow("job coordinator started", "workers", c.workers)
}

// Stop signals workers to drain and waits for in-flight jobs to finish.
func (c *Coordinator) Stop() {
	close(c.stop)
	c.wg.Wait()
	c.logger.Infow("job coordinator stopped")
}

func (c *Coordinator) workerLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-c.wake:
		case <-ticker.C:
		}

		for {
			j, err := c.claimNext(ctx)
			if err != nil {
				c.logger.Errorw("failed to claim job", "error", err)
				break
			}
			if j == nil {
				break
			}
			c.execute(ctx, j)
		}
	}
}

// claimNext transitions the oldest CREATED job to RUNNING, or returns nil
// when the queue is empty. Claiming is serialized so workers in this
// process never double-claim.
func (c *Coordinator) claimNext(ctx context.Context) (*job.Job, error) {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()

	pending, err := c.jobRepo.ListByState(ctx, job.StateCreated)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	j := pending[0]
	if err := j.Start(); err != nil {
		// Another instance claimed or the job was canceled underneath us.
		c.logger.Debugw("skipping unclaimable job", "job_id", j.ID(), "state", j.State())
		return nil, nil
	}
	if err := c.jobRepo.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (c *Coordinator) execute(ctx context.Context, j *job.Job) {
	handler, ok := c.handlers[j.TaskKey()]
	if !ok {
		c.failJob(ctx, j, fmt.Sprintf("no handler registered for task %q", j.TaskKey()))
		return
	}

	log := c.logger.With("job_id", j.ID(), "task", j.TaskKey())
	log.Infow("job started", "owner", j.OwnerKey())

	result, err := handler(ctx, j)
	if err != nil {
		log.Errorw("job failed", "error", err)
		c.failJob(ctx, j, err.Error())
		return
	}

	if err := j.Finish(result); err != nil {
		// A concurrent cancel won the race; the terminal state stands.
		log.Warnw("job finished after terminal transition", "state", j.State())
		return
	}
	if err := c.jobRepo.Update(ctx, j); err != nil {
		log.Errorw("failed to persist job result", "error", err)
		return
	}
	log.Infow("job finished", "result", result)
}

func (c *Coordinator) failJob(ctx context.Context, j *job.Job, message string) {
	if err := j.Fail(message); err != nil {
		return
	}
	if err := c.jobRepo.Update(ctx, j); err != nil {
		c.logger.Errorw("failed to persist job failure", "job_id", j.ID(), "error", err)
	}
}
