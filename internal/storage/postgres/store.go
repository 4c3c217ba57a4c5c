package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

type Store struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func New(logger zerolog.Logger, pgPool *pgxpool.Pool) *Store {
	return &Store{
		logger: logger,
		pgPool: pgPool,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id          BIGSERIAL PRIMARY KEY,
    title       TEXT        NOT NULL,
    description TEXT,
    is_complete BOOLEAN     NOT NULL DEFAULT FALSE,
    archived    BOOLEAN     NOT NULL DEFAULT FALSE,
    priority    TEXT        NOT NULL DEFAULT 'normal'
                CHECK (priority IN ('normal', 'minor', 'high', 'important')),
    date_due    TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tasks_is_complete ON tasks (is_complete);
CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks (archived);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks (priority);
CREATE INDEX IF NOT EXISTS idx_tasks_date_due ON tasks (date_due);

CREATE TABLE IF NOT EXISTS "activity-logs" (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT        NOT NULL,
    entity_id   BIGINT      NOT NULL,
    action      TEXT        NOT NULL,
    actor_type  TEXT,
    actor_id    BIGINT,
    old_values  JSONB,
    new_values  JSONB,
    status      TEXT        NOT NULL CHECK (status IN ('success', 'failed')),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_activity_logs_entity ON "activity-logs" (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_activity_logs_actor ON "activity-logs" (actor_type, actor_id);
CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON "activity-logs" (created_at);
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pgPool.Exec(ctx, schema)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to create schema")
		return err
	}
	s.logger.Debug().Msg("ensured schema")
	return nil
}

func (s *Store) Close() {
	s.pgPool.Close()
	s.logger.Info().Msg("disconnected from postgres")
}

func (s *Store) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	task := &models.Task{ID: id}

	const selectTaskByIDQuery = `
SELECT title,
       description,
       is_complete,
       archived,
       priority,
       date_due,
       created_at,
       updated_at
FROM tasks
WHERE id = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectTaskByIDQuery,
		task.ID,
	).Scan(
		&task.Title,
		&task.Description,
		&task.IsComplete,
		&task.Archived,
		&task.Priority,
		&task.DateDue,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to select task by id")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", id).
		Msg("selected task by id")
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*models.Task, error) {
	const selectTasksQuery = `
SELECT id,
       title,
       description,
       is_complete,
       archived,
       priority,
       date_due,
       created_at,
       updated_at
FROM tasks
ORDER BY id
`
	rows, err := s.pgPool.Query(ctx, selectTasksQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{}
		err = rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.IsComplete,
			&task.Archived,
			&task.Priority,
			&task.DateDue,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Msg("selected tasks")
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (title,
                   description,
                   is_complete,
                   archived,
                   priority,
                   date_due,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	err := s.pgPool.QueryRow(
		ctx,
		insertTaskQuery,
		task.Title,
		task.Description,
		task.IsComplete,
		task.Archived,
		task.Priority,
		task.DateDue,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return mapError(err)
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET title = $1,
    description = $2,
    is_complete = $3,
    archived = $4,
    priority = $5,
    date_due = $6,
    updated_at = $7
WHERE id = $8
`
	tag, err := s.pgPool.Exec(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.IsComplete,
		task.Archived,
		task.Priority,
		task.DateDue,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("failed to update task")
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("updated task")
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) (bool, error) {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := s.pgPool.Exec(
		ctx,
		deleteTaskQuery,
		id,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return false, err
	}
	s.logger.Debug().
		Int64("task_id", id).
		Int64("affected", tag.RowsAffected()).
		Msg("deleted task")
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	oldValues, err := marshalValues(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old values: %w", err)
	}
	newValues, err := marshalValues(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new values: %w", err)
	}

	const insertActivityLogQuery = `
INSERT INTO "activity-logs" (entity_type,
                             entity_id,
                             action,
                             actor_type,
                             actor_id,
                             old_values,
                             new_values,
                             status,
                             created_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9)
RETURNING id
`
	err = s.pgPool.QueryRow(
		ctx,
		insertActivityLogQuery,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorType,
		entry.ActorID,
		oldValues,
		newValues,
		entry.Status,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("action", entry.Action).
			Msg("failed to insert activity log")
		return mapError(err)
	}
	s.logger.Debug().
		Int64("activity_log_id", entry.ID).
		Str("action", entry.Action).
		Msg("inserted activity log")
	return nil
}

func (s *Store) ListActivityLogs(ctx context.Context) ([]*models.ActivityLog, error) {
	const selectActivityLogsQuery = `
SELECT id,
       entity_type,
       entity_id,
       action,
       COALESCE(actor_type, ''),
       actor_id,
       old_values,
       new_values,
       status,
       created_at
FROM "activity-logs"
ORDER BY id
`
	rows, err := s.pgPool.Query(ctx, selectActivityLogsQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select activity logs")
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.ActivityLog, 0)
	for rows.Next() {
		entry := &models.ActivityLog{}
		var oldValues, newValues []byte
		err = rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Action,
			&entry.ActorType,
			&entry.ActorID,
			&oldValues,
			&newValues,
			&entry.Status,
			&entry.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan activity log")
			return nil, err
		}
		if oldValues != nil {
			err = json.Unmarshal(oldValues, &entry.OldValues)
			if err != nil {
				s.logger.Error().
					Err(err).
					Int64("activity_log_id", entry.ID).
					Msg("failed to decode old values")
				return nil, fmt.Errorf("decode old values of activity log %d: %w", entry.ID, err)
			}
		}
		if newValues != nil {
			err = json.Unmarshal(newValues, &entry.NewValues)
			if err != nil {
				s.logger.Error().
					Err(err).
					Int64("activity_log_id", entry.ID).
					Msg("failed to decode new values")
				return nil, fmt.Errorf("decode new values of activity log %d: %w", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(entries)).
		Msg("selected activity logs")
	return entries, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.CheckViolation,
			pgerrcode.InvalidTextRepresentation,
			pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %s", storage.ErrInvalidValue, pgErr.Message)
		}
	}
	return err
}

func marshalValues(values map[string]any) (*string, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
