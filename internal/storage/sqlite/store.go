// Package sqlite persists tasks and activity logs in a SQLite database
// through the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT,
	is_complete INTEGER NOT NULL DEFAULT 0,
	archived    INTEGER NOT NULL DEFAULT 0,
	priority    TEXT NOT NULL DEFAULT 'normal'
	            CHECK (priority IN ('normal', 'minor', 'high', 'important')),
	date_due    DATETIME,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_is_complete ON tasks (is_complete);
CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks (archived);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks (priority);
CREATE INDEX IF NOT EXISTS idx_tasks_date_due ON tasks (date_due);

CREATE TABLE IF NOT EXISTS "activity-logs" (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	action      TEXT NOT NULL,
	actor_type  TEXT,
	actor_id    INTEGER,
	old_values  TEXT,
	new_values  TEXT,
	status      TEXT NOT NULL CHECK (status IN ('success', 'failed')),
	created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_logs_entity ON "activity-logs" (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_activity_logs_actor ON "activity-logs" (actor_type, actor_id);
CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON "activity-logs" (created_at);
`

// Store implements storage.Store on SQLite.
type Store struct {
	logger zerolog.Logger
	db     *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database at path. The caller is
// responsible for calling Close.
func Open(logger zerolog.Logger, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	return &Store{logger: logger, db: db}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to create schema")
		return fmt.Errorf("create schema: %w", err)
	}
	s.logger.Debug().Msg("ensured schema")
	return nil
}

func (s *Store) Close() {
	_ = s.db.Close()
	s.logger.Info().Msg("closed sqlite")
}

func (s *Store) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, is_complete, archived, priority, date_due, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to select task")
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	s.logger.Debug().
		Int64("task_id", id).
		Msg("selected task")
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, is_complete, archived, priority, date_due, created_at, updated_at
		FROM tasks ORDER BY id`)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, fmt.Errorf("scan task: %w", err)
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
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, is_complete, archived, priority, date_due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, nullString(task.Description), task.IsComplete, task.Archived,
		string(task.Priority), nullTime(task.DateDue),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return fmt.Errorf("insert task: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, is_complete = ?, archived = ?,
			priority = ?, date_due = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, nullString(task.Description), task.IsComplete, task.Archived,
		string(task.Priority), nullTime(task.DateDue), task.UpdatedAt.UTC(),
		task.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("failed to update task")
		return fmt.Errorf("update task %d: %w", task.ID, mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("updated task")
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	s.logger.Debug().
		Int64("task_id", id).
		Int64("affected", affected).
		Msg("deleted task")
	return affected > 0, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	oldValues, err := marshalValues(entry.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newValues, err := marshalValues(entry.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO "activity-logs"
			(entity_type, entity_id, action, actor_type, actor_id, old_values, new_values, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntityType, entry.EntityID, entry.Action,
		entry.ActorType, nullInt64(entry.ActorID),
		oldValues, newValues, entry.Status, entry.CreatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("action", entry.Action).
			Msg("failed to insert activity log")
		return fmt.Errorf("insert activity log: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	entry.ID = id
	s.logger.Debug().
		Int64("activity_log_id", entry.ID).
		Str("action", entry.Action).
		Msg("inserted activity log")
	return nil
}

func (s *Store) ListActivityLogs(ctx context.Context) ([]*models.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, action, actor_type, actor_id, old_values, new_values, status, created_at
		FROM "activity-logs" ORDER BY id`)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select activity logs")
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ActivityLog, 0)
	for rows.Next() {
		var (
			entry                models.ActivityLog
			actorType            sql.NullString
			actorID              sql.NullInt64
			oldValues, newValues sql.NullString
		)
		err = rows.Scan(
			&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
			&actorType, &actorID, &oldValues, &newValues,
			&entry.Status, &entry.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan activity log")
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		entry.ActorType = actorType.String
		if actorID.Valid {
			entry.ActorID = &actorID.Int64
		}
		if oldValues.Valid {
			entry.OldValues, err = unmarshalValues(oldValues.String)
			if err != nil {
				s.logger.Error().
					Err(err).
					Int64("activity_log_id", entry.ID).
					Msg("failed to decode old values")
				return nil, fmt.Errorf("decode old values of activity log %d: %w", entry.ID, err)
			}
		}
		if newValues.Valid {
			entry.NewValues, err = unmarshalValues(newValues.String)
			if err != nil {
				s.logger.Error().
					Err(err).
					Int64("activity_log_id", entry.ID).
					Msg("failed to decode new values")
				return nil, fmt.Errorf("decode new values of activity log %d: %w", entry.ID, err)
			}
		}
		entries = append(entries, &entry)
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

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		task        models.Task
		priority    string
		description sql.NullString
		dateDue     sql.NullTime
	)
	err := s.Scan(
		&task.ID, &task.Title, &description, &task.IsComplete, &task.Archived,
		&priority, &dateDue, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = models.Priority(priority)
	if description.Valid {
		task.Description = &description.String
	}
	if dateDue.Valid {
		due := dateDue.Time
		task.DateDue = &due
	}
	return &task, nil
}

func mapError(err error) error {
	var sqliteErr *moderncsqlite.Error
	// Code may be an extended result code; the low byte is the primary one.
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %s", storage.ErrInvalidValue, sqliteErr.Error())
	}
	return err
}

func marshalValues(values map[string]any) (any, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalValues(raw string) (map[string]any, error) {
	var values map[string]any
	err := json.Unmarshal([]byte(raw), &values)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
