package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps service sentinels onto HTTP responses. Only the
// bad-input family carries a specific message; everything else is generic.
func HandleServiceError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrImageMissing):
		RespondError(c, http.StatusBadRequest, "No image provided")
	case errors.Is(err, ErrImageNotBase64):
		RespondError(c, http.StatusBadRequest, "Image data is not valid base64")
	case errors.Is(err, ErrImageUndecodable):
		RespondError(c, http.StatusBadRequest, "Could not recognize the image. Please upload a valid JPEG, PNG, GIF or WebP file")
	case errors.Is(err, ErrImageTooLarge):
		RespondError(c, http.StatusBadRequest, "Image is too large, the limit is 10 MB")
	case errors.Is(err, ErrTextUnsupported):
		RespondError(c, http.StatusBadRequest, "Text search is not available")
	case errors.Is(err, ErrBadInput):
		RespondError(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrIndexBuildInProgress):
		RespondError(c, http.StatusConflict, "Index rebuild already in progress")
	case errors.Is(err, ErrDependencyUnavailable):
		log.Warn("dependency unavailable", zap.String("trace_id", traceID(c)), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Service temporarily unavailable, please retry")
	case errors.Is(err, ErrIndexBuildFailed):
		log.Error("index build failed", zap.String("trace_id", traceID(c)), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Index rebuild failed")
	case errors.Is(err, ErrDatabaseError):
		log.Error("database error", zap.String("trace_id", traceID(c)), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Error("unknown error", zap.String("trace_id", traceID(c)), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
