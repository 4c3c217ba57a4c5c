// Package query filters and orders task lists in memory.
//
// Both operations work over the full set loaded from storage. Nothing is
// pushed down to the database, which is fine for the small tables this
// service targets but becomes a full scan per request on large ones.
package query

import (
	"strings"

	"github.com/adanyl0v/go-task-tracker/internal/models"
)

// Spec holds the optional filter and sort parameters of a task listing.
// Nil booleans mean the criterion was not supplied.
type Spec struct {
	Search     string
	Priority   string
	IsComplete *bool
	Archived   *bool
	SortBy     string
	SortOrder  SortOrder
}

// Apply filters tasks by spec and then sorts the result.
func Apply(tasks []*models.Task, spec Spec) []*models.Task {
	return Sort(Filter(tasks, spec), spec.SortBy, spec.SortOrder)
}

// Filter returns the tasks matching every supplied criterion of spec.
// The input slice is not modified.
func Filter(tasks []*models.Task, spec Spec) []*models.Task {
	search := strings.ToLower(strings.TrimSpace(spec.Search))

	filtered := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if search != "" && !matchesSearch(task, search) {
			continue
		}
		if spec.Priority != "" && string(task.Priority) != spec.Priority {
			continue
		}
		if spec.IsComplete != nil && task.IsComplete != *spec.IsComplete {
			continue
		}
		if spec.Archived != nil && task.Archived != *spec.Archived {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered
}

func matchesSearch(task *models.Task, search string) bool {
	if strings.Contains(strings.ToLower(task.Title), search) {
		return true
	}
	return task.Description != nil &&
		strings.Contains(strings.ToLower(*task.Description), search)
}
