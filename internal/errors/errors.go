package errors

import (
	"errors"
	"net/http"
)

// Error kinds. Every error returned by the service layer wraps exactly one of these.
var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrConflict is returned on uniqueness or state conflicts.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned for bad credentials and missing, invalid or expired sessions.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a role or verification gate rejects the caller.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken is returned when a secondary token is absent or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmailDelivery is returned when the email provider fails.
	ErrEmailDelivery = errors.New("email delivery failed")
)

// Error pairs an error kind with the message shown to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation builds a ValidationError.
func Validation(message string) error { return newError(ErrValidation, message) }

// Conflict builds a ConflictError.
func Conflict(message string) error { return newError(ErrConflict, message) }

// Unauthorized builds an AuthError.
func Unauthorized(message string) error { return newError(ErrUnauthorized, message) }

// Forbidden builds a ForbiddenError.
func Forbidden(message string) error { return newError(ErrForbidden, message) }

// NotFound builds a NotFoundError.
func NotFound(message string) error { return newError(ErrNotFound, message) }

// InvalidToken builds an InvalidTokenError.
func InvalidToken(message string) error { return newError(ErrInvalidToken, message) }

// EmailDelivery builds an EmailDeliveryError.
func EmailDelivery(message string) error { return newError(ErrEmailDelivery, message) }

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var kinds = []struct {
	kind   error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
	{ErrEmailDelivery, http.StatusInternalServerError, "EMAIL_DELIVERY_FAILED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything outside the
// taxonomy becomes a generic 500 without internal detail.
func MapErrorToHTTP(err error) *HTTPError {
	for _, k := range kinds {
		if !errors.Is(err, k.kind) {
			continue
		}
		message := k.kind.Error()
		var appErr *Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		return NewHTTPError(k.status, message, k.code)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
