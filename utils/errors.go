package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorKind classifies a failure for HTTP mapping and logging.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindLimitExceeded ErrorKind = "limit_exceeded"
	KindExtraction    ErrorKind = "extraction"
	KindDependency    ErrorKind = "dependency"
)

// AppError is a structured failure distinguishable by kind. Every failure
// path in the pipelines returns one; nothing is silently swallowed.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// E builds an AppError without an underlying cause.
func E(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Wrap builds an AppError around an underlying cause.
func Wrap(kind ErrorKind, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindExtraction:
		return http.StatusBadRequest
	case KindLimitExceeded:
		if e.Code == "file_too_large" {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusTooManyRequests
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithAppError maps any error to the standard response shape. Errors
// that are not AppErrors become opaque 500s.
func RespondWithAppError(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		var details interface{}
		if appErr.Err != nil {
			details = gin.H{"error": appErr.Err.Error()}
		}
		RespondWithError(c, appErr.Status(), appErr.Code, appErr.Message, details)
		return
	}
	RespondWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}
