package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error sentinel values
var (
	ErrForbidden         = errors.New("operation not allowed")
	ErrBadRequest        = errors.New("malformed request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal server error")
	ErrConflict          = errors.New("resource conflict")
	ErrCORSBlocked       = errors.New("request blocked by CORS policy")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleState        = errors.New("record changed concurrently")
	ErrPartialFailure    = errors.New("operation partially completed")
)

type ApiErr struct {
	StatusCode int
	err        error
	Details    string   // Additional details about the error
	Field      string   // Field that caused the error (for validation errors)
	Fields     []string // Every offending field when more than one failed validation
	Cause      error    // The underlying cause of the error
}

// implements error interface. this allows us to pass an instance of ApiErr as an argument of type `error`
func (e *ApiErr) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.err.Error(), e.Details)
	}
	return e.err.Error()
}

// GetFullError returns a recursive error message including all causes
func (e *ApiErr) GetFullError() string {
	msg := e.Error()
	if e.Cause != nil {
		var apiErr *ApiErr
		if errors.As(e.Cause, &apiErr) {
			msg = fmt.Sprintf("%s -> %s", msg, apiErr.GetFullError())
		} else {
			msg = fmt.Sprintf("%s -> %s", msg, e.Cause.Error())
		}
	}
	return msg
}

// this function allows us to do the following:
// err := &ApiErr{StatusCode: ..., err: someSentinelError}
// errors.Is(err, someSentinelError) ==> evaluates to true
func (e *ApiErr) Unwrap() error {
	return e.err
}

// Common error constructors with appropriate HTTP status codes
func NewNotFoundError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusNotFound, err: fmt.Errorf("%s: %w", message, ErrNotFound)}
}

func NewForbiddenError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusForbidden, err: ErrForbidden, Details: message}
}

func NewBadRequestError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, err: fmt.Errorf("%s: %w", message, ErrBadRequest)}
}

func NewInternalError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusInternalServerError, err: fmt.Errorf("%s: %w", message, ErrInternal)}
}

func NewConflictError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusConflict, err: ErrConflict, Details: message}
}

// NewInvalidTransitionError reports a status change the review state machine does not allow.
func NewInvalidTransitionError(from, to string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrInvalidTransition,
		Details:    fmt.Sprintf("cannot move from %s to %s", from, to),
		Field:      "status",
	}
}

// NewStaleStateError is returned to the loser of a compare-and-swap on a status column.
func NewStaleStateError(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrStaleState,
		Details:    fmt.Sprintf("%s was modified by another request, reload and retry", entity),
	}
}

// NewPartialFailureError describes a multi-record operation whose first step persisted.
func NewPartialFailureError(details string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusMultiStatus,
		err:        ErrPartialFailure,
		Details:    details,
		Cause:      cause,
	}
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsStaleState(err error) bool {
	return errors.Is(err, ErrStaleState)
}

func IsPartialFailure(err error) bool {
	return errors.Is(err, ErrPartialFailure)
}

func NewInternalErrorWithCause(message string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        fmt.Errorf("%s: %w", message, ErrInternal),
		Cause:      cause,
	}
}

func NewCORSError(origin string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        ErrCORSBlocked,
		Details:    fmt.Sprintf("Origin '%s' is not allowed by CORS policy", origin),
	}
}

// StatusCode extracts the HTTP status of err, defaulting to 500.
func StatusCode(err error) int {
	var apiErr *ApiErr
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// joinFields renders field names for a single human readable message.
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	}
	return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
}
