package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/query"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

type taskServiceFixture struct {
	store   *memoryStore
	metrics *AuditMetrics
	tasks   TaskService
	now     time.Time
}

func newTaskServiceFixture(t *testing.T) *taskServiceFixture {
	t.Helper()

	metrics, err := NewAuditMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &taskServiceFixture{
		store:   newMemoryStore(),
		metrics: metrics,
		now:     time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	activity := NewActivityService(zerolog.Nop(), f.store, metrics, clock)
	f.tasks = NewTaskService(zerolog.Nop(), f.store, activity, clock)
	return f
}

func (f *taskServiceFixture) create(t *testing.T, title string) *models.Task {
	t.Helper()
	res, err := f.tasks.CreateTask(context.Background(), CreateTaskParams{Title: title})
	require.NoError(t, err)
	return res.Task
}

func TestTaskService_CreateTask(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	res, err := f.tasks.CreateTask(ctx, CreateTaskParams{Title: "Write report"})
	require.NoError(t, err)

	task := res.Task
	assert.NotZero(t, task.ID)
	assert.Equal(t, models.PriorityNormal, task.Priority)
	assert.False(t, task.IsComplete)
	assert.False(t, task.Archived)
	assert.Nil(t, task.Description)
	assert.Equal(t, f.now, task.CreatedAt)
	assert.Equal(t, f.now, task.UpdatedAt)
	assert.Equal(t, AuditRecorded, res.Audit.Status)
	assert.Equal(t, []string{ActionCreated}, f.store.actions())
}

func TestTaskService_CreateTask_Validation(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, CreateTaskParams{Title: "   "})
	assert.ErrorIs(t, err, ErrEmptyTaskTitle)

	_, err = f.tasks.CreateTask(ctx, CreateTaskParams{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidTaskPriority)

	tasks, err := f.store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, f.store.actions())
}

func TestTaskService_MarkComplete_LogsOnce(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	first, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, first.Task.IsComplete)
	assert.Equal(t, AuditRecorded, first.Audit.Status)

	second, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, second.Task.IsComplete)
	assert.Equal(t, AuditSkipped, second.Audit.Status)

	logs, err := f.store.ListActivityLogs(ctx)
	require.NoError(t, err)

	var completed []*models.ActivityLog
	for _, entry := range logs {
		if entry.Action == ActionMarkedComplete {
			completed = append(completed, entry)
		}
	}
	require.Len(t, completed, 1)
	assert.Equal(t, map[string]any{"isComplete": false}, completed[0].OldValues)
	assert.Equal(t, map[string]any{"isComplete": true}, completed[0].NewValues)
	assert.Equal(t, models.EntityTypeTask, completed[0].EntityType)
	assert.Equal(t, task.ID, completed[0].EntityID)
	assert.Equal(t, models.DefaultActorType, completed[0].ActorType)
	assert.Nil(t, completed[0].ActorID)
	assert.Equal(t, models.ActivityStatusSuccess, completed[0].Status)
}

func TestTaskService_MarkNotComplete_NoOpWritesNoLog(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	res, err := f.tasks.MarkNotComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Task.IsComplete)
	assert.Equal(t, AuditSkipped, res.Audit.Status)
	assert.Equal(t, []string{ActionCreated}, f.store.actions())
}

func TestTaskService_MarkNotComplete(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	_, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	res, err := f.tasks.MarkNotComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Task.IsComplete)
	assert.Equal(t, f.now, res.Task.UpdatedAt)
	assert.Equal(t, task.CreatedAt, res.Task.CreatedAt)
	assert.Equal(t,
		[]string{ActionCreated, ActionMarkedComplete, ActionMarkedNotComplete},
		f.store.actions())
}

func TestTaskService_ArchiveUnarchive(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	res, err := f.tasks.ArchiveTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Task.Archived)
	assert.False(t, res.Task.IsComplete)

	res, err = f.tasks.ArchiveTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, AuditSkipped, res.Audit.Status)

	res, err = f.tasks.UnarchiveTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Task.Archived)

	assert.Equal(t,
		[]string{ActionCreated, ActionArchived, ActionUnarchived},
		f.store.actions())
}

func TestTaskService_MarkAsDone(t *testing.T) {
	states := []struct {
		name       string
		isComplete bool
		archived   bool
	}{
		{"fresh", false, false},
		{"complete", true, false},
		{"archived", false, true},
		{"done", true, true},
	}

	for _, state := range states {
		t.Run(state.name, func(t *testing.T) {
			f := newTaskServiceFixture(t)
			ctx := context.Background()
			task := f.create(t, "Write report")

			_, err := f.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{
				IsComplete: &state.isComplete,
				Archived:   &state.archived,
			})
			require.NoError(t, err)

			res, err := f.tasks.MarkAsDone(ctx, task.ID)
			require.NoError(t, err)
			assert.True(t, res.Task.IsComplete)
			assert.True(t, res.Task.Archived)

			stored, err := f.tasks.GetTask(ctx, task.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsComplete)
			assert.True(t, stored.Archived)

			if state.isComplete && state.archived {
				assert.Equal(t, AuditSkipped, res.Audit.Status)
			} else {
				assert.Equal(t, AuditRecorded, res.Audit.Status)
			}
		})
	}
}

func TestTaskService_UpdateTask(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	title := "Write the report"
	priority := models.PriorityImportant
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	f.now = f.now.Add(time.Hour)

	res, err := f.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{
		Title:    &title,
		Priority: &priority,
		DateDue:  &due,
	})
	require.NoError(t, err)
	assert.Equal(t, title, res.Task.Title)
	assert.Equal(t, priority, res.Task.Priority)
	assert.Equal(t, due, *res.Task.DateDue)
	assert.Equal(t, f.now, res.Task.UpdatedAt)
	assert.Equal(t, task.ID, res.Task.ID)

	logs, err := f.store.ListActivityLogs(ctx)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, ActionUpdated, last.Action)
	assert.Equal(t, "Write report", last.OldValues["title"])
	assert.Equal(t, title, last.NewValues["title"])
	assert.NotContains(t, last.NewValues, "isComplete")
}

func TestTaskService_UpdateTask_NothingChanged(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	title := "Write report"
	f.now = f.now.Add(time.Hour)
	res, err := f.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, AuditSkipped, res.Audit.Status)
	assert.Equal(t, task.UpdatedAt, res.Task.UpdatedAt)
	assert.Equal(t, []string{ActionCreated}, f.store.actions())
}

func TestTaskService_UpdateTask_Validation(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	empty := ""
	_, err := f.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{Title: &empty})
	assert.ErrorIs(t, err, ErrEmptyTaskTitle)

	bad := models.Priority("urgent")
	_, err = f.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{Priority: &bad})
	assert.ErrorIs(t, err, ErrInvalidTaskPriority)
}

func TestTaskService_NotFound(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	_, err := f.tasks.GetTask(ctx, 42)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	transitions := map[string]func(context.Context, int64) (*TransitionResult, error){
		"complete":     f.tasks.MarkComplete,
		"not complete": f.tasks.MarkNotComplete,
		"archive":      f.tasks.ArchiveTask,
		"unarchive":    f.tasks.UnarchiveTask,
		"done":         f.tasks.MarkAsDone,
	}
	for name, transition := range transitions {
		t.Run(name, func(t *testing.T) {
			res, err := transition(ctx, 42)
			assert.ErrorIs(t, err, ErrTaskNotFound)
			assert.Nil(t, res)
		})
	}

	_, err = f.tasks.UpdateTask(ctx, 42, UpdateTaskParams{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Empty(t, f.store.actions())
}

func TestTaskService_DeleteTask(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")
	_, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)

	deleted, err := f.tasks.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = f.tasks.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	deleted, err = f.tasks.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	logs, err := f.store.ListActivityLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, ActionMarkedComplete, logs[1].Action)
	assert.Equal(t, map[string]any{"isComplete": true}, logs[1].NewValues)
	assert.Equal(t, ActionDeleted, logs[2].Action)
	assert.Equal(t, task.ID, logs[2].EntityID)
	assert.Equal(t, "Write report", logs[2].OldValues["title"])
}

func TestTaskService_LogFailureDoesNotFailTransition(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	f.store.logErr = errStoreDown

	res, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Task.IsComplete)
	assert.Equal(t, AuditFailed, res.Audit.Status)
	assert.ErrorIs(t, res.Audit.Err, errStoreDown)

	stored, err := f.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsComplete)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.failures.WithLabelValues(ActionMarkedComplete)))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.writes.WithLabelValues(ActionMarkedComplete)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.writes.WithLabelValues(ActionCreated)))
}

func TestTaskService_StoreFailureRecordsFailedEntry(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	f.store.updateErr = errStoreDown

	res, err := f.tasks.ArchiveTask(ctx, task.ID)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Nil(t, res)

	logs, err := f.store.ListActivityLogs(ctx)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, ActionArchived, last.Action)
	assert.Equal(t, models.ActivityStatusFailed, last.Status)
}

func TestTaskService_ConstraintViolationIsNeutral(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	task := f.create(t, "Write report")

	f.store.updateErr = fmt.Errorf("%w: NOT NULL constraint failed: tasks.title", storage.ErrInvalidValue)

	_, err := f.tasks.MarkComplete(ctx, task.ID)
	assert.ErrorIs(t, err, ErrInvalidTaskValue)
	assert.NotErrorIs(t, err, ErrInvalidTaskPriority)
	assert.NotContains(t, err.Error(), "NOT NULL")
}

func TestTaskService_ActorFromContext(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.create(t, "Write report")

	userID := int64(7)
	ctx := WithActor(context.Background(), Actor{Type: "user", ID: &userID})
	_, err := f.tasks.MarkComplete(ctx, task.ID)
	require.NoError(t, err)

	logs, err := f.store.ListActivityLogs(ctx)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, "user", last.ActorType)
	require.NotNil(t, last.ActorID)
	assert.Equal(t, userID, *last.ActorID)
}

func TestTaskService_GetTasks(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	b := f.create(t, "bravo")
	a := f.create(t, "alpha")
	c := f.create(t, "charlie")
	_, err := f.tasks.MarkComplete(ctx, c.ID)
	require.NoError(t, err)

	incomplete := false
	tasks, err := f.tasks.GetTasks(ctx, query.Spec{
		IsComplete: &incomplete,
		SortBy:     "title",
		SortOrder:  query.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, a.ID, tasks[0].ID)
	assert.Equal(t, b.ID, tasks[1].ID)

	all, err := f.tasks.GetTasks(ctx, query.Spec{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
