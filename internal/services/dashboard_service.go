package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

// overviewPastWeeks is how many full weeks before the current one the
// activity window of an overview covers.
const overviewPastWeeks = 2

type dashboardServiceImpl struct {
	logger zerolog.Logger
	tasks  storage.TaskStore
	logs   storage.ActivityLogStore
	now    Clock
}

func NewDashboardService(
	logger zerolog.Logger,
	tasks storage.TaskStore,
	logs storage.ActivityLogStore,
	now Clock,
) DashboardService {
	return &dashboardServiceImpl{
		logger: logger,
		tasks:  tasks,
		logs:   logs,
		now:    orNow(now),
	}
}

func (s *dashboardServiceImpl) Overview(ctx context.Context, month int) (*Overview, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}

	allTasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		return nil, err
	}

	tasks := make([]*models.Task, 0)
	for _, task := range allTasks {
		if task.DateDue == nil {
			continue
		}
		if task.DateDue.UTC().Month() == time.Month(month) {
			tasks = append(tasks, task)
		}
	}
	s.logger.Debug().
		Int("month", month).
		Int("count", len(tasks)).
		Msg("selected tasks due in month")

	allLogs, err := s.logs.ListActivityLogs(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list activity logs")
		return nil, err
	}

	from, to := activityWindow(s.now())
	logs := make([]*models.ActivityLog, 0)
	for _, entry := range allLogs {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	s.logger.Debug().
		Time("from", from).
		Time("to", to).
		Int("count", len(logs)).
		Msg("selected activity logs in window")

	s.logger.Info().
		Int("month", month).
		Msg("built task overview")
	return &Overview{Tasks: tasks, ActivityLogs: logs}, nil
}

// activityWindow returns the inclusive range from Monday 00:00 of the
// week overviewPastWeeks before now's week to the last instant of the
// Sunday ending now's week, in now's location.
func activityWindow(now time.Time) (time.Time, time.Time) {
	sinceMonday := (int(now.Weekday()) + 6) % 7
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-sinceMonday, 0, 0, 0, 0, now.Location())

	from := weekStart.AddDate(0, 0, -7*overviewPastWeeks)
	to := weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return from, to
}
