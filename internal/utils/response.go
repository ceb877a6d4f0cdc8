// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, data, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func ErrorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

func ValidationErrorResponse(c *gin.Context, details interface{}) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    string(apperrors.KindValidation),
			Message: "validation failed",
			Details: details,
		},
	})
}

// statusByKind maps error kinds to HTTP statuses. Transition, state and
// write conflicts all surface as 409.
var statusByKind = map[apperrors.Kind]int{
	apperrors.KindNotFound:          http.StatusNotFound,
	apperrors.KindInvalidTransition: http.StatusConflict,
	apperrors.KindInvalidState:      http.StatusConflict,
	apperrors.KindForbidden:         http.StatusForbidden,
	apperrors.KindValidation:        http.StatusBadRequest,
	apperrors.KindConflict:          http.StatusConflict,
	apperrors.KindUnavailable:       http.StatusServiceUnavailable,
}

// RespondError translates a service error into the response envelope.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	ErrorResponse(c, status, string(kind), message)
}
