package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type countingSweep struct {
	count int
	runs  int
}

func (s *countingSweep) Execute(ctx context.Context) (int, error) {
	s.runs++
	return s.count, nil
}

func TestSweepHandler_RunsThroughCoordinator(t *testing.T) {
	repo := &memJobRepo{}
	c := NewCoordinator(repo, 1, logger.NewLogger())
	sweep := &countingSweep{count: 3}
	c.Register("expired_pool_sweep", NewSweepHandler("expired pools", sweep))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	j, err := c.Enqueue(ctx, "expired_pool_sweep", "", "scheduler", nil)
	require.NoError(t, err)

	done := waitForState(t, repo, j.ID(), job.StateFinished)
	assert.Equal(t, "Swept 3 expired pools", done.ResultMessage())
	assert.Equal(t, 1, sweep.runs)
}

func TestRefreshPoolsHandler_RequiresOwnerKey(t *testing.T) {
	h := NewRefreshPoolsHandler(nil)
	j, err := job.NewJob("refresh_pools", "", "scheduler", nil)
	require.NoError(t, err)

	_, err = h(context.Background(), j)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestHypervisorCheckInHandler_RejectsMalformedReports(t *testing.T) {
	h := NewHypervisorCheckInHandler(nil)
	j, err := job.NewJob("hypervisor_checkin", "acme", "virt-who",
		map[string]string{"reports": "{not json"})
	require.NoError(t, err)

	_, err = h(context.Background(), j)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
