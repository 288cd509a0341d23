// Package response contains response utility functions and types
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error types used across handlers. Each maps 1:1 onto an HTTP status at
// the call site: 401 Authorization, 403 Forbidden, 404 NotFound,
// 409/412 Conflict/Precondition, 411/413 Input, 425 Cooldown, 5xx Server.
const (
	ErrAuthorization = "AuthorizationException"
	ErrForbidden     = "ForbiddenException"
	ErrNotFound      = "NotFoundException"
	ErrConflict      = "ConflictException"
	ErrPrecondition  = "PreconditionException"
	ErrInput         = "InputException"
	ErrCooldown      = "CooldownException"
	ErrServer        = "ServerException"
	ErrUpstream      = "UpstreamException"
)

// Response represents the standard API response structure
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// SuccessResponse sends a successful JSON response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessResponseWithStatus sends a successful JSON response with a custom status code
func SuccessResponseWithStatus(c echo.Context, httpStatus int, data interface{}) error {
	return c.JSON(httpStatus, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error JSON response
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Response{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}
