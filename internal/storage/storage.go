// Package storage declares the persistence contracts for tasks and
// activity logs. Implementations live in the postgres and sqlite
// subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/adanyl0v/go-task-tracker/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrInvalidValue is returned when the database rejects a column
	// value, e.g. a priority outside the enum.
	ErrInvalidValue = errors.New("invalid column value")
)

type TaskStore interface {
	// GetTaskByID returns ErrNotFound if no task has the given id.
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)

	// ListTasks returns every task ordered by id.
	ListTasks(ctx context.Context) ([]*models.Task, error)

	// CreateTask inserts the task and sets its generated ID.
	CreateTask(ctx context.Context, task *models.Task) error

	// UpdateTask overwrites every mutable column of the task.
	// It returns ErrNotFound if the row no longer exists.
	UpdateTask(ctx context.Context, task *models.Task) error

	// DeleteTask reports whether a row was removed.
	DeleteTask(ctx context.Context, id int64) (bool, error)
}

type ActivityLogStore interface {
	// CreateActivityLog appends the entry and sets its generated ID.
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error

	// ListActivityLogs returns every entry ordered by id.
	ListActivityLogs(ctx context.Context) ([]*models.ActivityLog, error)
}

// Store is implemented by every backend.
type Store interface {
	TaskStore
	ActivityLogStore

	EnsureSchema(ctx context.Context) error
	Close()
}
