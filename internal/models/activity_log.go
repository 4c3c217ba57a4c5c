package models

import "time"

const (
	ActivityStatusSuccess = "success"
	ActivityStatusFailed  = "failed"
)

// DefaultActorType is recorded when no authenticated principal
// performed the action.
const DefaultActorType = "system-actor"

// ActivityLog is an append-only audit record. EntityType and EntityID
// form a lookup key, not a reference: entries outlive their entity.
type ActivityLog struct {
	ID         int64
	EntityType string
	EntityID   int64
	Action     string
	ActorType  string
	ActorID    *int64
	OldValues  map[string]any
	NewValues  map[string]any
	Status     string
	CreatedAt  time.Time
}
