package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(zerolog.Nop(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestStore_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	store, err := Open(zerolog.New(&buf).Level(zerolog.DebugLevel), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateTask(ctx, &models.Task{Title: "a", Priority: models.PriorityNormal, CreatedAt: now, UpdatedAt: now}))
	assert.Contains(t, buf.String(), `"message":"inserted task"`)

	_, err = store.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"selected task"`)
}

func TestStore_EnsureSchemaIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestStore_TaskCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	description := "quarterly numbers"
	due := now.AddDate(0, 0, 3)
	task := &models.Task{
		Title:       "Write report",
		Description: &description,
		Priority:    models.PriorityHigh,
		DateDue:     &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateTask(ctx, task))
	require.NotZero(t, task.ID)

	got, err := store.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, description, *got.Description)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.False(t, got.IsComplete)
	assert.False(t, got.Archived)
	require.NotNil(t, got.DateDue)
	assert.True(t, due.Equal(*got.DateDue))
	assert.True(t, now.Equal(got.CreatedAt))

	got.IsComplete = true
	got.Archived = true
	got.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, store.UpdateTask(ctx, got))

	updated, err := store.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsComplete)
	assert.True(t, updated.Archived)
	assert.True(t, now.Add(time.Hour).Equal(updated.UpdatedAt))

	deleted, err := store.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.GetTaskByID(ctx, task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	deleted, err = store.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_NullableColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	task := &models.Task{Title: "bare", Priority: models.PriorityNormal, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateTask(ctx, task))

	got, err := store.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.DateDue)
}

func TestStore_ListTasksInInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	now := time.Now().UTC()
	for _, title := range []string{"c", "a", "b"} {
		require.NoError(t, store.CreateTask(ctx, &models.Task{
			Title:     title,
			Priority:  models.PriorityNormal,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	tasks, err = store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].Title)
	assert.Equal(t, "a", tasks[1].Title)
	assert.Equal(t, "b", tasks[2].Title)
}

func TestStore_UpdateMissingTask(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateTask(context.Background(), &models.Task{
		ID:       42,
		Title:    "ghost",
		Priority: models.PriorityNormal,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_InvalidPriority(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC()
	err := store.CreateTask(context.Background(), &models.Task{
		Title:     "x",
		Priority:  "urgent",
		CreatedAt: now,
		UpdatedAt: now,
	})
	assert.ErrorIs(t, err, storage.ErrInvalidValue)
}

func TestStore_ActivityLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	task := &models.Task{Title: "audited", Priority: models.PriorityNormal, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateTask(ctx, task))

	actorID := int64(7)
	entries := []*models.ActivityLog{
		{
			EntityType: models.EntityTypeTask,
			EntityID:   task.ID,
			Action:     "created",
			ActorType:  models.DefaultActorType,
			NewValues:  map[string]any{"title": "audited"},
			Status:     models.ActivityStatusSuccess,
			CreatedAt:  now,
		},
		{
			EntityType: models.EntityTypeTask,
			EntityID:   task.ID,
			Action:     "marked_complete",
			ActorType:  "user",
			ActorID:    &actorID,
			OldValues:  map[string]any{"isComplete": false},
			NewValues:  map[string]any{"isComplete": true},
			Status:     models.ActivityStatusFailed,
			CreatedAt:  now.Add(time.Minute),
		},
	}
	for _, entry := range entries {
		require.NoError(t, store.CreateActivityLog(ctx, entry))
		assert.NotZero(t, entry.ID)
	}

	// entries outlive the task they reference
	deleted, err := store.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	got, err := store.ListActivityLogs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "created", got[0].Action)
	assert.Equal(t, models.DefaultActorType, got[0].ActorType)
	assert.Nil(t, got[0].ActorID)
	assert.Nil(t, got[0].OldValues)
	assert.Equal(t, map[string]any{"title": "audited"}, got[0].NewValues)

	assert.Equal(t, "marked_complete", got[1].Action)
	require.NotNil(t, got[1].ActorID)
	assert.Equal(t, actorID, *got[1].ActorID)
	assert.Equal(t, map[string]any{"isComplete": false}, got[1].OldValues)
	assert.Equal(t, map[string]any{"isComplete": true}, got[1].NewValues)
	assert.Equal(t, models.ActivityStatusFailed, got[1].Status)
	assert.True(t, now.Add(time.Minute).Equal(got[1].CreatedAt))
}

func TestStore_ActivityLogInvalidStatus(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateActivityLog(context.Background(), &models.ActivityLog{
		EntityType: models.EntityTypeTask,
		EntityID:   1,
		Action:     "created",
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidValue)
}

func TestStore_ActivityLogUndecodableValues(t *testing.T) {
	tests := []struct {
		name      string
		oldValues any
		newValues any
		wantErr   string
	}{
		{name: "malformed old values", oldValues: "{not json", newValues: nil, wantErr: "decode old values of activity log 1"},
		{name: "new values not an object", oldValues: nil, newValues: "[1,2]", wantErr: "decode new values of activity log 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()

			_, err := store.db.ExecContext(ctx, `
				INSERT INTO "activity-logs"
					(entity_type, entity_id, action, actor_type, old_values, new_values, status, created_at)
				VALUES ('task', 1, 'updated', 'system-actor', ?, ?, 'success', ?)`,
				tt.oldValues, tt.newValues, time.Now().UTC(),
			)
			require.NoError(t, err)

			entries, err := store.ListActivityLogs(ctx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, entries)
		})
	}
}
