package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedJob(t *testing.T) *Job {
	t.Helper()
	j, err := NewJob("refresh_pools", "acme", "admin@acme", map[string]string{"owner_key": "acme"})
	require.NoError(t, err)
	return j
}

func TestNewJob(t *testing.T) {
	j := queuedJob(t)
	assert.Equal(t, StateCreated, j.State())
	assert.NotEmpty(t, j.ID())
	assert.Equal(t, "acme", j.Argument("owner_key"))
	assert.Nil(t, j.StartTime())
	assert.Nil(t, j.EndTime())

	_, err := NewJob("", "acme", "admin@acme", nil)
	assert.Error(t, err)
}

func TestJob_Lifecycle(t *testing.T) {
	t.Run("created to finished", func(t *testing.T) {
		j := queuedJob(t)
		require.NoError(t, j.Start())
		assert.Equal(t, StateRunning, j.State())
		require.NotNil(t, j.StartTime())

		require.NoError(t, j.Finish("refreshed 3 pools"))
		assert.Equal(t, StateFinished, j.State())
		assert.Equal(t, "refreshed 3 pools", j.ResultMessage())
		require.NotNil(t, j.EndTime())
	})

	t.Run("cannot start twice", func(t *testing.T) {
		j := queuedJob(t)
		require.NoError(t, j.Start())
		assert.Error(t, j.Start())
	})

	t.Run("cannot finish before start", func(t *testing.T) {
		j := queuedJob(t)
		assert.Error(t, j.Finish("nope"))
	})

	t.Run("fail from created or running", func(t *testing.T) {
		j := queuedJob(t)
		require.NoError(t, j.Fail("worker lost"))
		assert.Equal(t, StateFailed, j.State())
		assert.Equal(t, "worker lost", j.ResultMessage())

		j = queuedJob(t)
		require.NoError(t, j.Start())
		require.NoError(t, j.Fail("handler error"))
		assert.Equal(t, StateFailed, j.State())
	})

	t.Run("cancel from created or running", func(t *testing.T) {
		j := queuedJob(t)
		require.NoError(t, j.Cancel())
		assert.Equal(t, StateCanceled, j.State())

		j = queuedJob(t)
		require.NoError(t, j.Start())
		require.NoError(t, j.Cancel())
		assert.Equal(t, StateCanceled, j.State())
	})

	t.Run("terminal states admit nothing", func(t *testing.T) {
		j := queuedJob(t)
		require.NoError(t, j.Start())
		require.NoError(t, j.Finish("done"))

		assert.Error(t, j.Cancel())
		assert.Error(t, j.Fail("too late"))
		assert.Error(t, j.Start())
	})
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, StateCreated.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())
	assert.True(t, StateFinished.IsTerminal())
	assert.True(t, StateCanceled.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}

func TestJob_AccessibleBy(t *testing.T) {
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	j, err := ReconstructJob("job_1", "refresh_pools", "acme", "alice@acme",
		StateCreated, "", nil, nil, nil, created, created)
	require.NoError(t, err)

	assert.True(t, j.AccessibleBy("alice@acme", "acme", false))
	assert.False(t, j.AccessibleBy("bob@acme", "acme", false))
	assert.False(t, j.AccessibleBy("alice@acme", "globex", false))
	assert.True(t, j.AccessibleBy("anyone", "anywhere", true))
}
