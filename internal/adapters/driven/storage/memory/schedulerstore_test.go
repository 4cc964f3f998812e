package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	task := &domain.ScheduledTask{
		ID:       domain.TaskIDDeltaRefresh,
		Name:     "Delta Refresh",
		Interval: time.Hour,
		Enabled:  true,
	}
	require.NoError(t, store.SaveTask(ctx, task))

	got, err := store.GetTask(ctx, domain.TaskIDDeltaRefresh)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Delta Refresh", got.Name)

	missing, err := store.GetTask(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSchedulerStore_ListTasksSorted(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDHistoryPrune}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDDeltaRefresh}))

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDDeltaRefresh, tasks[0].ID)
	assert.Equal(t, domain.TaskIDHistoryPrune, tasks[1].ID)
}

func TestSchedulerStore_DeleteTask(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDDeltaRefresh}))
	require.NoError(t, store.DeleteTask(ctx, domain.TaskIDDeltaRefresh))

	got, err := store.GetTask(ctx, domain.TaskIDDeltaRefresh)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSchedulerStore_TaskHistory(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDDeltaRefresh,
			StartedAt:      time.Now().Add(time.Duration(i) * time.Minute),
			Success:        true,
			ItemsProcessed: i,
		}))
	}
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
		TaskID:  domain.TaskIDHistoryPrune,
		Success: true,
	}))

	history, err := store.GetTaskHistory(ctx, domain.TaskIDDeltaRefresh, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].ItemsProcessed)
	assert.Equal(t, 1, history[1].ItemsProcessed)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDDeltaRefresh,
			ItemsProcessed: i,
		}))
	}
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
		TaskID: domain.TaskIDHistoryPrune,
	}))

	require.NoError(t, store.PruneHistory(ctx, 2))

	refresh, err := store.GetTaskHistory(ctx, domain.TaskIDDeltaRefresh, 0)
	require.NoError(t, err)
	require.Len(t, refresh, 2)
	assert.Equal(t, 4, refresh[0].ItemsProcessed)
	assert.Equal(t, 3, refresh[1].ItemsProcessed)

	// Other tasks keep their own retained window.
	prune, err := store.GetTaskHistory(ctx, domain.TaskIDHistoryPrune, 0)
	require.NoError(t, err)
	assert.Len(t, prune, 1)
}
