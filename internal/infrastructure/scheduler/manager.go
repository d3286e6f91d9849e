// Package scheduler triggers the engine's periodic maintenance using
// gocron v2. Each tick enqueues a job on the async coordinator rather than
// running the sweep inline, so scheduled runs are persisted, auditable,
// and drained by the same worker pool as caller-submitted work.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	catalogUC "github.com/entgrid-io/entgrid/internal/application/catalog/usecases"
	poolsUC "github.com/entgrid-io/entgrid/internal/application/pools/usecases"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/biztime"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// schedulerPrincipal marks jobs the scheduler enqueued on its own.
const schedulerPrincipal = "scheduler"

// JobQueue enqueues maintenance work onto the async job coordinator.
type JobQueue interface {
	Enqueue(ctx context.Context, taskKey, ownerKey, principal string, arguments map[string]string) (*job.Job, error)
}

// Manager owns the single gocron scheduler instance for all periodic
// engine maintenance.
type Manager struct {
	scheduler gocron.Scheduler
	queue     JobQueue
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewManager creates a Manager using the business timezone for cron math.
func NewManager(queue JobQueue, log logger.Interface) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		queue:     queue,
		logger:    log,
	}, nil
}

// RegisterPoolSweep schedules the expired pool sweep. Pools whose end date
// has passed are cascade-deleted together with their entitlements.
func (m *Manager) RegisterPoolSweep(interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			m.enqueueMaintenance("expired-pool-sweep", poolsUC.TaskExpiredPoolSweep)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("pools", "sweep"),
		gocron.WithName("expired-pool-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered expired pool sweep", "interval", interval)
	return nil
}

// RegisterOrphanSweep schedules garbage collection of product and content
// versions no owner links to anymore.
func (m *Manager) RegisterOrphanSweep(interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			m.enqueueMaintenance("orphan-version-sweep", catalogUC.TaskOrphanVersionSweep)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("catalog", "gc"),
		gocron.WithName("orphan-version-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered orphan version sweep", "interval", interval)
	return nil
}

// enqueueMaintenance hands one scheduled run to the coordinator. Sweeps are
// owner-agnostic, so the job carries no owner key.
func (m *Manager) enqueueMaintenance(name, taskKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j, err := m.queue.Enqueue(ctx, taskKey, "", schedulerPrincipal, nil)
	if err != nil {
		m.logger.Errorw("failed to enqueue maintenance job",
			"job", name, "task", taskKey, "error", err)
		return
	}
	m.logger.Debugw("maintenance job enqueued",
		"job", name, "task", taskKey, "job_id", j.ID())
}

// Start starts the scheduler and all registered jobs.
func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler stopped")
	return nil
}
