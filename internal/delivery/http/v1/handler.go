package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/services"
)

type Handler interface {
	HandleRequestLoggerMiddleware(c *gin.Context)
	HandleActorMiddleware(c *gin.Context)

	HandleGetTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleMarkComplete(c *gin.Context)
	HandleMarkNotComplete(c *gin.Context)
	HandleArchiveTask(c *gin.Context)
	HandleUnarchiveTask(c *gin.Context)
	HandleMarkAsDone(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleGetActivityLogs(c *gin.Context)
	HandleGetTaskOverview(c *gin.Context)
}

type handlerImpl struct {
	logger    zerolog.Logger
	tasks     services.TaskService
	activity  services.ActivityService
	dashboard services.DashboardService
	location  *time.Location

	jwtIssuer     string
	jwtSigningKey []byte
}

// New returns the v1 handler. Timestamps are rendered in location, UTC
// when nil. An empty jwtSigningKey disables bearer token parsing and
// every request acts as the system actor.
func New(
	logger zerolog.Logger,
	taskService services.TaskService,
	activityService services.ActivityService,
	dashboardService services.DashboardService,
	location *time.Location,
	jwtIssuer string,
	jwtSigningKey string,
) Handler {
	if location == nil {
		location = time.UTC
	}
	return &handlerImpl{
		logger:        logger,
		tasks:         taskService,
		activity:      activityService,
		dashboard:     dashboardService,
		location:      location,
		jwtIssuer:     jwtIssuer,
		jwtSigningKey: []byte(jwtSigningKey),
	}
}

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router gin.IRouter, h Handler) {
	api := router.Group("/api")
	api.Use(h.HandleActorMiddleware)

	tasks := api.Group("/tasks")
	tasks.GET("", h.HandleGetTasks)
	tasks.GET("/:id", h.HandleGetTask)
	tasks.POST("", h.HandleCreateTask)
	tasks.PUT("/:id", h.HandleUpdateTask)
	tasks.PATCH("/:id/complete", h.HandleMarkComplete)
	tasks.PATCH("/:id/not-complete", h.HandleMarkNotComplete)
	tasks.PATCH("/:id/archive", h.HandleArchiveTask)
	tasks.PATCH("/:id/unarchive", h.HandleUnarchiveTask)
	tasks.PATCH("/:id/done", h.HandleMarkAsDone)
	tasks.DELETE("/:id", h.HandleDeleteTask)

	api.GET("/activity/logs", h.HandleGetActivityLogs)
	api.GET("/dashboard/task/overview", h.HandleGetTaskOverview)
}
