package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/query"
	"github.com/adanyl0v/go-task-tracker/internal/services"
)

const auditStatusHeader = "X-Audit-Status"

type getTaskResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	IsComplete  bool            `json:"isComplete"`
	Archived    bool            `json:"archived"`
	Priority    models.Priority `json:"priority"`
	DateDue     *string         `json:"dateDue"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

func (h *handlerImpl) newGetTaskResponse(task *models.Task) getTaskResponse {
	return getTaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		IsComplete:  task.IsComplete,
		Archived:    task.Archived,
		Priority:    task.Priority,
		DateDue:     h.formatTimePtr(task.DateDue),
		CreatedAt:   h.formatTime(task.CreatedAt),
		UpdatedAt:   h.formatTime(task.UpdatedAt),
	}
}

func (h *handlerImpl) newGetTasksResponse(tasks []*models.Task) []getTaskResponse {
	response := make([]getTaskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = h.newGetTaskResponse(task)
	}
	return response
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	spec := query.Spec{
		Search:    c.Query("search"),
		Priority:  c.Query("priority"),
		SortBy:    c.Query("sortBy"),
		SortOrder: query.SortOrder(c.Query("sortOrder")),
	}
	if value, ok := c.GetQuery("isComplete"); ok {
		isComplete := value == "true"
		spec.IsComplete = &isComplete
	}
	if value, ok := c.GetQuery("archived"); ok {
		archived := value == "true"
		spec.Archived = &archived
	}

	tasks, err := h.tasks.GetTasks(c.Request.Context(), spec)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get tasks")
		abort(c, newServiceError(err))
		return
	}

	c.JSON(http.StatusOK, h.newGetTasksResponse(tasks))
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to get task")
		abort(c, newServiceError(err))
		return
	}

	c.JSON(http.StatusOK, h.newGetTaskResponse(task))
}

type createTaskRequest struct {
	Title       string          `json:"title" binding:"required,max=255"`
	Description *string         `json:"description"`
	Priority    models.Priority `json:"priority" binding:"omitempty,oneof=normal minor high important"`
	DateDue     *string         `json:"dateDue"`
	IsComplete  *bool           `json:"isComplete"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	dateDue, err := h.parseTimePtr(req.DateDue)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid due date")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	params := services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DateDue:     dateDue,
	}
	if req.IsComplete != nil {
		params.IsComplete = *req.IsComplete
	}

	result, err := h.tasks.CreateTask(c.Request.Context(), params)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		abort(c, newServiceError(err))
		return
	}

	c.Header(auditStatusHeader, string(result.Audit.Status))
	c.JSON(http.StatusCreated, h.newGetTaskResponse(result.Task))
}

type updateTaskRequest struct {
	Title       *string          `json:"title" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	Priority    *models.Priority `json:"priority" binding:"omitempty,oneof=normal minor high important"`
	DateDue     *string          `json:"dateDue"`
	IsComplete  *bool            `json:"isComplete"`
	Archived    *bool            `json:"archived"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	dateDue, err := h.parseTimePtr(req.DateDue)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("invalid due date")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	result, err := h.tasks.UpdateTask(c.Request.Context(), taskID, services.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DateDue:     dateDue,
		IsComplete:  req.IsComplete,
		Archived:    req.Archived,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to update task")
		abort(c, newServiceError(err))
		return
	}

	c.Header(auditStatusHeader, string(result.Audit.Status))
	c.JSON(http.StatusOK, h.newGetTaskResponse(result.Task))
}

func (h *handlerImpl) HandleMarkComplete(c *gin.Context) {
	h.handleTransition(c, h.tasks.MarkComplete, "marked task complete")
}

func (h *handlerImpl) HandleMarkNotComplete(c *gin.Context) {
	h.handleTransition(c, h.tasks.MarkNotComplete, "marked task not complete")
}

func (h *handlerImpl) HandleArchiveTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.ArchiveTask, "archived task")
}

func (h *handlerImpl) HandleUnarchiveTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.UnarchiveTask, "unarchived task")
}

func (h *handlerImpl) HandleMarkAsDone(c *gin.Context) {
	h.handleTransition(c, h.tasks.MarkAsDone, "marked task done")
}

type transitionFunc func(ctx context.Context, id int64) (*services.TransitionResult, error)

func (h *handlerImpl) handleTransition(c *gin.Context, transition transitionFunc, msg string) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	result, err := transition(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to transition task")
		abort(c, newServiceError(err))
		return
	}

	h.logger.Info().
		Int64("task_id", taskID).
		Str("audit", string(result.Audit.Status)).
		Msg(msg)
	c.Header(auditStatusHeader, string(result.Audit.Status))
	c.JSON(http.StatusOK, h.newGetTaskResponse(result.Task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.tasks.DeleteTask(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to delete task")
		abort(c, newServiceError(err))
		return
	}
	if !deleted {
		h.logger.Warn().
			Int64("task_id", taskID).
			Msg("task not found")
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	c.Status(http.StatusNoContent)
}

// taskIDParam parses the :id path parameter, aborting with 400 when it
// is not a positive integer.
func (h *handlerImpl) taskIDParam(c *gin.Context) (int64, bool) {
	param := c.Param("id")
	taskID, err := strconv.ParseInt(param, 10, 64)
	if err != nil || taskID <= 0 {
		h.logger.Error().
			Str("id", param).
			Msg("invalid task id")
		abort(c, newBadRequestError(errInvalidTaskID.Error()))
		return 0, false
	}
	return taskID, true
}
