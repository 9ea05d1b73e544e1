package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/felop/appointment-booking-backend/internal/logger"
	"github.com/felop/appointment-booking-backend/internal/pkg/apperror"
	"github.com/felop/appointment-booking-backend/internal/pkg/request"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse carries the list of individual field errors produced
// by structural input validation.
type ValidationResponse struct {
	Error   string               `json:"error"`
	Details []request.FieldError `json:"details"`
}

// Error sends a JSON error response. AppError values answer with their own
// status code and message; anything else is an unexpected internal failure
// and becomes an opaque 500 after being logged.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message})
		return
	}

	logger.L().Error("unhandled error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// ValidationFailed sends a 400 with the collected field errors.
func ValidationFailed(c *gin.Context, errs []request.FieldError) {
	c.JSON(http.StatusBadRequest, ValidationResponse{
		Error:   "validation failed",
		Details: errs,
	})
}
