package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-task-tracker/internal/services"
)

type getTaskOverviewResponse struct {
	Tasks        []getTaskResponse        `json:"tasks"`
	ActivityLogs []getActivityLogResponse `json:"activityLogs"`
}

func (h *handlerImpl) HandleGetTaskOverview(c *gin.Context) {
	param := c.Query("calendar_month")
	month, err := strconv.Atoi(param)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("calendar_month", param).
			Msg("invalid calendar month")
		abort(c, newBadRequestError(services.ErrInvalidMonth.Error()))
		return
	}

	overview, err := h.dashboard.Overview(c.Request.Context(), month)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int("calendar_month", month).
			Msg("failed to get task overview")
		abort(c, newServiceError(err))
		return
	}

	c.JSON(http.StatusOK, getTaskOverviewResponse{
		Tasks:        h.newGetTasksResponse(overview.Tasks),
		ActivityLogs: h.newGetActivityLogsResponse(overview.ActivityLogs),
	})
}
