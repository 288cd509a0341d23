package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusError carries the HTTP translation of a service failure. Services
// never panic or surface raw database errors; they return a StatusError
// (or a plain error, translated to 500 here).
type StatusError struct {
	Status  int
	Type    string
	Message string
}

func (e *StatusError) Error() string { return e.Message }

func NewStatusError(status int, errorType, message string) *StatusError {
	return &StatusError{Status: status, Type: errorType, Message: message}
}

// Common constructors for the error taxonomy.
func Unauthenticated(message string) *StatusError {
	return NewStatusError(http.StatusUnauthorized, ErrAuthorization, message)
}

func Forbidden(message string) *StatusError {
	return NewStatusError(http.StatusForbidden, ErrForbidden, message)
}

func NotFound(message string) *StatusError {
	return NewStatusError(http.StatusNotFound, ErrNotFound, message)
}

func Conflict(message string) *StatusError {
	return NewStatusError(http.StatusConflict, ErrConflict, message)
}

func TooShort(message string) *StatusError {
	return NewStatusError(http.StatusLengthRequired, ErrInput, message)
}

func TooLong(message string) *StatusError {
	return NewStatusError(http.StatusRequestEntityTooLarge, ErrInput, message)
}

func Cooldown(message string) *StatusError {
	return NewStatusError(http.StatusTooEarly, ErrCooldown, message)
}

func Upstream(message string) *StatusError {
	return NewStatusError(http.StatusInternalServerError, ErrUpstream, message)
}

// FromError translates a service error into the JSON error envelope.
func FromError(c echo.Context, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ErrorResponse(c, statusErr.Status, statusErr.Type, statusErr.Message)
	}
	return ErrorResponse(c, http.StatusInternalServerError, ErrServer, "Something went wrong")
}
