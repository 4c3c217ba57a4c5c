package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-task-tracker/internal/models"
)

type getActivityLogResponse struct {
	ID         int64          `json:"id"`
	EntityType string         `json:"entityType"`
	EntityID   int64          `json:"entityId"`
	Action     string         `json:"action"`
	ActorType  string         `json:"actorType"`
	ActorID    *int64         `json:"actorId"`
	OldValues  map[string]any `json:"oldValues"`
	NewValues  map[string]any `json:"newValues"`
	Status     string         `json:"status"`
	CreatedAt  string         `json:"createdAt"`
}

func (h *handlerImpl) newGetActivityLogsResponse(logs []*models.ActivityLog) []getActivityLogResponse {
	response := make([]getActivityLogResponse, len(logs))
	for i, entry := range logs {
		response[i] = getActivityLogResponse{
			ID:         entry.ID,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Action:     entry.Action,
			ActorType:  entry.ActorType,
			ActorID:    entry.ActorID,
			OldValues:  entry.OldValues,
			NewValues:  entry.NewValues,
			Status:     entry.Status,
			CreatedAt:  h.formatTime(entry.CreatedAt),
		}
	}
	return response
}

func (h *handlerImpl) HandleGetActivityLogs(c *gin.Context) {
	logs, err := h.activity.GetActivityLogs(c.Request.Context())
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get activity logs")
		abort(c, newServiceError(err))
		return
	}

	c.JSON(http.StatusOK, h.newGetActivityLogsResponse(logs))
}
