package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

type activityServiceImpl struct {
	logger  zerolog.Logger
	store   storage.ActivityLogStore
	metrics *AuditMetrics
	now     Clock
}

func NewActivityService(
	logger zerolog.Logger,
	store storage.ActivityLogStore,
	metrics *AuditMetrics,
	now Clock,
) ActivityService {
	return &activityServiceImpl{
		logger:  logger,
		store:   store,
		metrics: metrics,
		now:     orNow(now),
	}
}

func (s *activityServiceImpl) Record(ctx context.Context, entry *models.ActivityLog) AuditResult {
	if entry.ActorType == "" {
		actor := ActorFromContext(ctx)
		entry.ActorType = actor.Type
		entry.ActorID = actor.ID
	}
	if entry.Status == "" {
		entry.Status = models.ActivityStatusSuccess
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	// The entity mutation has already happened; a client going away
	// must not drop its audit record.
	err := s.store.CreateActivityLog(context.WithoutCancel(ctx), entry)
	if err != nil {
		s.metrics.recordFailure(entry.Action)
		s.logger.Warn().
			Err(err).
			Str("entity_type", entry.EntityType).
			Int64("entity_id", entry.EntityID).
			Str("action", entry.Action).
			Msg("failed to record activity")
		return AuditResult{Status: AuditFailed, Err: err}
	}
	s.metrics.recordWrite(entry.Action)

	s.logger.Debug().
		Int64("activity_log_id", entry.ID).
		Str("entity_type", entry.EntityType).
		Int64("entity_id", entry.EntityID).
		Str("action", entry.Action).
		Msg("recorded activity")
	return AuditResult{Status: AuditRecorded}
}

func (s *activityServiceImpl) GetActivityLogs(ctx context.Context) ([]*models.ActivityLog, error) {
	entries, err := s.store.ListActivityLogs(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list activity logs")
		return nil, err
	}

	s.logger.Info().
		Int("count", len(entries)).
		Msg("activity logs found")
	return entries, nil
}
