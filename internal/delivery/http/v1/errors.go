package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-task-tracker/internal/services"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidTaskID      = errors.New("task id must be a positive integer")
	errInvalidToken       = errors.New("invalid access token")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

// newServiceError maps service errors onto the API error taxonomy.
// Anything unrecognised is a store failure and hides its details.
func newServiceError(err error) apiError {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return newNotFoundError(services.ErrTaskNotFound.Error())
	case errors.Is(err, services.ErrEmptyTaskTitle),
		errors.Is(err, services.ErrInvalidTaskPriority),
		errors.Is(err, services.ErrInvalidTaskValue),
		errors.Is(err, services.ErrInvalidMonth):
		return newBadRequestError(err.Error())
	default:
		return newStatusTextError(http.StatusInternalServerError)
	}
}
