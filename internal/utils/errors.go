package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/service"
)

// HandleAPIError logs err and sends an error envelope. Error details are only
// exposed outside release mode.
func HandleAPIError(c *gin.Context, err error, status int, code common.ErrorCode, message string) {
	logging.GetGlobalLogger().LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		c.GetString("RequestID"),
		status,
		message,
		err,
	)

	var details interface{}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		details = err.Error()
	}

	c.JSON(status, common.NewErrorResponse(code, message, details))
}

// HandleServiceError maps service sentinel errors to status codes
func HandleServiceError(c *gin.Context, err error, message string) {
	status, code := ServiceErrorStatus(err)
	HandleAPIError(c, err, status, code, message)
}

// ServiceErrorStatus returns the HTTP status and error code for a service error
func ServiceErrorStatus(err error) (int, common.ErrorCode) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, common.ErrCodeNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, common.ErrCodeValidation
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, common.ErrCodeConflict
	case errors.Is(err, service.ErrUIOnly):
		return http.StatusUnprocessableEntity, common.ErrCodeUnprocessable
	case errors.Is(err, service.ErrNoModem):
		return http.StatusServiceUnavailable, common.ErrCodeServiceUnavailable
	default:
		return http.StatusInternalServerError, common.ErrCodeInternalServer
	}
}
