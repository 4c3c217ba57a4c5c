package services

import (
	"context"
	"errors"
	"time"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/query"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrEmptyTaskTitle      = errors.New("task title is required")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrInvalidTaskValue    = errors.New("task has an invalid field value")
	ErrInvalidMonth        = errors.New("calendar month must be between 1 and 12")
)

type TaskService interface {
	// GetTasks loads every task and applies the filters and ordering
	// of spec in memory.
	GetTasks(ctx context.Context, spec query.Spec) ([]*models.Task, error)

	// GetTask returns ErrTaskNotFound if no task has the given id.
	GetTask(ctx context.Context, id int64) (*models.Task, error)

	// CreateTask validates the params, applies defaults for omitted
	// fields and persists a new task.
	//
	// It returns ErrEmptyTaskTitle or ErrInvalidTaskPriority before
	// touching the store.
	CreateTask(ctx context.Context, params CreateTaskParams) (*TransitionResult, error)

	// UpdateTask merges the non-nil params into the task and refreshes
	// its update time. A call that changes nothing writes nothing.
	UpdateTask(ctx context.Context, id int64, params UpdateTaskParams) (*TransitionResult, error)

	// MarkComplete sets isComplete.
	MarkComplete(ctx context.Context, id int64) (*TransitionResult, error)

	// MarkNotComplete clears isComplete.
	MarkNotComplete(ctx context.Context, id int64) (*TransitionResult, error)

	// ArchiveTask sets archived.
	ArchiveTask(ctx context.Context, id int64) (*TransitionResult, error)

	// UnarchiveTask clears archived.
	UnarchiveTask(ctx context.Context, id int64) (*TransitionResult, error)

	// MarkAsDone sets both isComplete and archived.
	MarkAsDone(ctx context.Context, id int64) (*TransitionResult, error)

	// DeleteTask hard deletes the task and reports whether it existed.
	// Activity logs referencing the task are kept.
	DeleteTask(ctx context.Context, id int64) (bool, error)
}

type ActivityService interface {
	// Record appends entry to the activity log. It never fails the
	// caller: write errors are logged, counted and returned in the
	// result only.
	Record(ctx context.Context, entry *models.ActivityLog) AuditResult

	// GetActivityLogs returns the full log in insertion order.
	GetActivityLogs(ctx context.Context) ([]*models.ActivityLog, error)
}

type DashboardService interface {
	// Overview returns the tasks due in the given calendar month of any
	// year and the activity of the current and two previous weeks.
	//
	// It returns ErrInvalidMonth if month is outside 1..12.
	Overview(ctx context.Context, month int) (*Overview, error)
}

type CreateTaskParams struct {
	Title       string
	Description *string
	Priority    models.Priority
	DateDue     *time.Time
	IsComplete  bool
}

type UpdateTaskParams struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	DateDue     *time.Time
	IsComplete  *bool
	Archived    *bool
}

type AuditStatus string

const (
	AuditRecorded AuditStatus = "recorded"
	AuditSkipped  AuditStatus = "skipped"
	AuditFailed   AuditStatus = "failed"
)

// AuditResult is the outcome of the activity log side effect of a
// mutation. Err is set only when Status is AuditFailed.
type AuditResult struct {
	Status AuditStatus
	Err    error
}

// TransitionResult separates the primary result of a mutation from its
// audit side effect. A failed audit never fails the mutation.
type TransitionResult struct {
	Task  *models.Task
	Audit AuditResult
}

type Overview struct {
	Tasks        []*models.Task
	ActivityLogs []*models.ActivityLog
}

// Actor identifies who performed an audited action.
type Actor struct {
	Type string
	ID   *int64
}

type actorCtxKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext returns the system actor when none was attached.
func ActorFromContext(ctx context.Context) Actor {
	actor, ok := ctx.Value(actorCtxKey{}).(Actor)
	if !ok || actor.Type == "" {
		return Actor{Type: models.DefaultActorType}
	}
	return actor
}

type Clock func() time.Time

func orNow(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}
