package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrEmailExists is returned when registering with an email already in use.
	ErrEmailExists = errors.New("email address already exists")
	// ErrInvalidCredentials is returned when password or one-time code is wrong.
	ErrInvalidCredentials = errors.New("invalid email, password or one-time code")
	// ErrLockedOut is returned once failed login attempts reach the threshold.
	ErrLockedOut = errors.New("number of incorrect login attempts exceeded")
	// ErrInvalidDraw is returned when submitted numbers fail count or range checks.
	ErrInvalidDraw = errors.New("draw must contain six numbers between 1 and 60")
	// ErrNoActiveMasterDraw is returned when a round operation needs an unplayed winning draw.
	ErrNoActiveMasterDraw = errors.New("no active winning draw")
	// ErrWrongCurrentPassword is returned when the current password does not verify.
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	// ErrSamePassword is returned when the new password equals the current one.
	ErrSamePassword = errors.New("new password must be different from current password")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

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

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrEmailExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_EXISTS")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrLockedOut):
		return NewHTTPError(http.StatusTooManyRequests, err.Error(), "LOCKED_OUT")
	case errors.Is(err, ErrInvalidDraw):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_DRAW")
	case errors.Is(err, ErrNoActiveMasterDraw):
		return NewHTTPError(http.StatusConflict, err.Error(), "NO_ACTIVE_MASTER_DRAW")
	case errors.Is(err, ErrWrongCurrentPassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "WRONG_CURRENT_PASSWORD")
	case errors.Is(err, ErrSamePassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SAME_PASSWORD")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
