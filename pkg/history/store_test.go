package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.CreateRun("run-1", "docs", "push", "master"))

	r, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", r.Status)
	assert.Equal(t, "docs", r.Workflow)
	assert.Equal(t, "push", r.Event)
	assert.Equal(t, "master", r.Branch)
	assert.Empty(t, r.Started)

	require.NoError(t, store.MarkRunning("run-1"))
	r, err = store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "running", r.Status)
	assert.NotEmpty(t, r.Started)

	require.NoError(t, store.MarkSuccess("run-1"))
	require.NoError(t, store.MarkPublished("run-1"))
	r, err = store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, 0, r.ExitCode)
	assert.True(t, r.Published)
	assert.NotEmpty(t, r.Finished)
}

func TestMarkFailed(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.CreateRun("run-2", "docs", "push", "master"))
	require.NoError(t, store.MarkRunning("run-2"))
	require.NoError(t, store.MarkFailed("run-2", 101, "step install-deps failed"))

	r, err := store.GetRun("run-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", r.Status)
	assert.Equal(t, 101, r.ExitCode)
	assert.Equal(t, "step install-deps failed", r.Error)
	assert.False(t, r.Published)
}

func TestRecordSteps(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.CreateRun("run-3", "docs", "push", "master"))
	require.NoError(t, store.RecordStep("run-3", "build", 0, "install-deps", "success", 0, 1200*time.Millisecond))
	require.NoError(t, store.RecordStep("run-3", "build", 1, "build-docs", "failed", 101, 3400*time.Millisecond))
	require.NoError(t, store.RecordStep("run-3", "build", 2, "publish-docs", "skipped", 0, 0))

	steps, err := store.RunSteps("run-3")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "install-deps", steps[0].Name)
	assert.Equal(t, int64(1200), steps[0].DurationMs)
	assert.Equal(t, "failed", steps[1].Status)
	assert.Equal(t, 101, steps[1].ExitCode)
	assert.Equal(t, "skipped", steps[2].Status)
	assert.Equal(t, 2, steps[2].Index)
}

func TestRecentRuns(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.CreateRun(id, "docs", "push", "master"))
	}

	runs, err := store.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Same created second; id desc breaks the tie.
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetRun("run-nope")
	assert.Error(t, err)
}

func TestDuplicateRunID(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.CreateRun("run-dup", "docs", "push", "master"))
	assert.Error(t, store.CreateRun("run-dup", "docs", "push", "master"))
}
