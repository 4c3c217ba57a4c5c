package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/query"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

const (
	ActionCreated           = "created"
	ActionUpdated           = "updated"
	ActionDeleted           = "deleted"
	ActionMarkedComplete    = "marked_complete"
	ActionMarkedNotComplete = "marked_not_complete"
	ActionArchived          = "archived"
	ActionUnarchived        = "unarchived"
	ActionMarkedDone        = "marked_done"
)

type taskServiceImpl struct {
	logger   zerolog.Logger
	store    storage.TaskStore
	activity ActivityService
	now      Clock
}

func NewTaskService(
	logger zerolog.Logger,
	store storage.TaskStore,
	activity ActivityService,
	now Clock,
) TaskService {
	return &taskServiceImpl{
		logger:   logger,
		store:    store,
		activity: activity,
		now:      orNow(now),
	}
}

func (s *taskServiceImpl) GetTasks(ctx context.Context, spec query.Spec) ([]*models.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Msg("listed tasks")

	tasks = query.Apply(tasks, spec)

	s.logger.Info().
		Int("count", len(tasks)).
		Str("sort_by", spec.SortBy).
		Str("sort_order", string(spec.SortOrder)).
		Msg("tasks found")
	return tasks, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", id).
		Msg("task found")
	return task, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*TransitionResult, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrEmptyTaskTitle
	}
	if params.Priority == "" {
		params.Priority = models.PriorityNormal
	}
	if !params.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	now := s.now()
	task := &models.Task{
		Title:       params.Title,
		Description: params.Description,
		IsComplete:  params.IsComplete,
		Archived:    false,
		Priority:    params.Priority,
		DateDue:     params.DateDue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.CreateTask(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to create task")
		return nil, s.mapStoreError(err)
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("inserted task")

	audit := s.activity.Record(ctx, &models.ActivityLog{
		EntityType: models.EntityTypeTask,
		EntityID:   task.ID,
		Action:     ActionCreated,
		NewValues:  snapshot(task),
	})

	s.logger.Info().
		Int64("task_id", task.ID).
		Msg("created task")
	return &TransitionResult{Task: task, Audit: audit}, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, id int64, params UpdateTaskParams) (*TransitionResult, error) {
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		return nil, ErrEmptyTaskTitle
	}
	if params.Priority != nil && !params.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	oldValues, newValues := map[string]any{}, map[string]any{}
	if params.Title != nil && *params.Title != task.Title {
		oldValues["title"], newValues["title"] = task.Title, *params.Title
		task.Title = *params.Title
	}
	if params.Description != nil && !equalPtr(params.Description, task.Description) {
		oldValues["description"], newValues["description"] = valueOf(task.Description), *params.Description
		task.Description = params.Description
	}
	if params.Priority != nil && *params.Priority != task.Priority {
		oldValues["priority"], newValues["priority"] = task.Priority, *params.Priority
		task.Priority = *params.Priority
	}
	if params.DateDue != nil && (task.DateDue == nil || !task.DateDue.Equal(*params.DateDue)) {
		oldValues["dateDue"], newValues["dateDue"] = valueOf(task.DateDue), *params.DateDue
		task.DateDue = params.DateDue
	}
	if params.IsComplete != nil && *params.IsComplete != task.IsComplete {
		oldValues["isComplete"], newValues["isComplete"] = task.IsComplete, *params.IsComplete
		task.IsComplete = *params.IsComplete
	}
	if params.Archived != nil && *params.Archived != task.Archived {
		oldValues["archived"], newValues["archived"] = task.Archived, *params.Archived
		task.Archived = *params.Archived
	}

	if len(newValues) == 0 {
		s.logger.Info().
			Int64("task_id", id).
			Msg("no fields to update")
		return &TransitionResult{Task: task, Audit: AuditResult{Status: AuditSkipped}}, nil
	}

	return s.save(ctx, task, ActionUpdated, oldValues, newValues)
}

func (s *taskServiceImpl) MarkComplete(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, ActionMarkedComplete, boolPtr(true), nil)
}

func (s *taskServiceImpl) MarkNotComplete(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, ActionMarkedNotComplete, boolPtr(false), nil)
}

func (s *taskServiceImpl) ArchiveTask(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, ActionArchived, nil, boolPtr(true))
}

func (s *taskServiceImpl) UnarchiveTask(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, ActionUnarchived, nil, boolPtr(false))
}

func (s *taskServiceImpl) MarkAsDone(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, ActionMarkedDone, boolPtr(true), boolPtr(true))
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64) (bool, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return false, err
	}
	if !deleted {
		// Removed concurrently between the read and the delete.
		s.logger.Warn().
			Int64("task_id", id).
			Msg("task not found")
		return false, nil
	}
	s.logger.Debug().
		Int64("task_id", id).
		Msg("deleted task")

	s.activity.Record(ctx, &models.ActivityLog{
		EntityType: models.EntityTypeTask,
		EntityID:   id,
		Action:     ActionDeleted,
		OldValues:  snapshot(task),
	})

	s.logger.Info().
		Int64("task_id", id).
		Msg("deleted task")
	return true, nil
}

// transition moves the completion and archival flags to the given
// targets; nil leaves a flag untouched. Flags already in their target
// state are not written or audited.
func (s *taskServiceImpl) transition(ctx context.Context, id int64, action string, isComplete, archived *bool) (*TransitionResult, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	oldValues, newValues := map[string]any{}, map[string]any{}
	if isComplete != nil && task.IsComplete != *isComplete {
		oldValues["isComplete"], newValues["isComplete"] = task.IsComplete, *isComplete
		task.IsComplete = *isComplete
	}
	if archived != nil && task.Archived != *archived {
		oldValues["archived"], newValues["archived"] = task.Archived, *archived
		task.Archived = *archived
	}

	if len(newValues) == 0 {
		s.logger.Info().
			Int64("task_id", id).
			Str("action", action).
			Msg("task already in target state")
		return &TransitionResult{Task: task, Audit: AuditResult{Status: AuditSkipped}}, nil
	}

	return s.save(ctx, task, action, oldValues, newValues)
}

func (s *taskServiceImpl) save(
	ctx context.Context,
	task *models.Task,
	action string,
	oldValues, newValues map[string]any,
) (*TransitionResult, error) {
	task.UpdatedAt = s.now()

	err := s.store.UpdateTask(ctx, task)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().
				Int64("task_id", task.ID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Str("action", action).
			Msg("failed to update task")
		s.activity.Record(ctx, &models.ActivityLog{
			EntityType: models.EntityTypeTask,
			EntityID:   task.ID,
			Action:     action,
			OldValues:  oldValues,
			NewValues:  newValues,
			Status:     models.ActivityStatusFailed,
		})
		return nil, s.mapStoreError(err)
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Str("action", action).
		Msg("updated task")

	audit := s.activity.Record(ctx, &models.ActivityLog{
		EntityType: models.EntityTypeTask,
		EntityID:   task.ID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
	})

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("action", action).
		Str("audit", string(audit.Status)).
		Msg("updated task")
	return &TransitionResult{Task: task, Audit: audit}, nil
}

func (s *taskServiceImpl) getTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().
				Int64("task_id", id).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to get task")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", id).
		Msg("selected task")
	return task, nil
}

// mapStoreError hides the store's constraint details behind
// ErrInvalidTaskValue; every other error passes through.
func (s *taskServiceImpl) mapStoreError(err error) error {
	if errors.Is(err, storage.ErrInvalidValue) {
		return ErrInvalidTaskValue
	}
	return err
}

func snapshot(task *models.Task) map[string]any {
	return map[string]any{
		"title":       task.Title,
		"description": valueOf(task.Description),
		"isComplete":  task.IsComplete,
		"archived":    task.Archived,
		"priority":    task.Priority,
		"dateDue":     valueOf(task.DateDue),
	}
}

func valueOf[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtr(b bool) *bool { return &b }
