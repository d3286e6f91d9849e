package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogUC "github.com/entgrid-io/entgrid/internal/application/catalog/usecases"
	poolsUC "github.com/entgrid-io/entgrid/internal/application/pools/usecases"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type recordingQueue struct {
	tasks      []string
	principals []string
}

func (q *recordingQueue) Enqueue(ctx context.Context, taskKey, ownerKey, principal string, arguments map[string]string) (*job.Job, error) {
	q.tasks = append(q.tasks, taskKey)
	q.principals = append(q.principals, principal)
	return job.NewJob(taskKey, ownerKey, principal, arguments)
}

func TestManager_MaintenanceEnqueuesCoordinatorJobs(t *testing.T) {
	queue := &recordingQueue{}
	m, err := NewManager(queue, logger.NewLogger())
	require.NoError(t, err)

	m.enqueueMaintenance("expired-pool-sweep", poolsUC.TaskExpiredPoolSweep)
	m.enqueueMaintenance("orphan-version-sweep", catalogUC.TaskOrphanVersionSweep)

	assert.Equal(t, []string{poolsUC.TaskExpiredPoolSweep, catalogUC.TaskOrphanVersionSweep}, queue.tasks)
	assert.Equal(t, []string{schedulerPrincipal, schedulerPrincipal}, queue.principals)
}

func TestManager_RegistersSweeps(t *testing.T) {
	queue := &recordingQueue{}
	m, err := NewManager(queue, logger.NewLogger())
	require.NoError(t, err)

	require.NoError(t, m.RegisterPoolSweep(time.Hour))
	require.NoError(t, m.RegisterOrphanSweep(time.Hour))
	assert.Len(t, m.scheduler.Jobs(), 2)
}
