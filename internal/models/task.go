package models

import "time"

const EntityTypeTask = "task"

type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityMinor     Priority = "minor"
	PriorityHigh      Priority = "high"
	PriorityImportant Priority = "important"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityMinor, PriorityHigh, PriorityImportant:
		return true
	}
	return false
}

type Task struct {
	ID          int64
	Title       string
	Description *string
	IsComplete  bool
	Archived    bool
	Priority    Priority
	DateDue     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
