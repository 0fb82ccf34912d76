package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Request & Input-Validation Errors
var (
	ErrValidation           = errors.New("validation failed")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidField         = errors.New("invalid field")
	ErrMaxBodySizeExceeded  = errors.New("max body size exceeded")
	ErrInvalidJSON          = errors.New("invalid JSON")
)

// FieldProblem is one failed check collected by a validator.
type FieldProblem struct {
	Field   string
	Missing bool
	Reason  string
}

// NewValidationError folds every problem into one error so callers can show
// all offending fields at once.
func NewValidationError(problems []FieldProblem) *ApiErr {
	var missing, invalid, fields []string
	for _, p := range problems {
		fields = append(fields, p.Field)
		if p.Missing {
			missing = append(missing, p.Field)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", p.Field, p.Reason))
		}
	}

	details := ""
	if len(missing) > 0 {
		details = "missing required fields: " + joinFields(missing)
	}
	if len(invalid) > 0 {
		if details != "" {
			details += "; "
		}
		details += "invalid fields: " + joinFields(invalid)
	}

	apiErr := &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Details:    details,
		Fields:     fields,
	}
	if len(fields) == 1 {
		apiErr.Field = fields[0]
	}
	return apiErr
}

func NewMissingRequiredFieldError(fieldName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMissingRequiredField,
		Details:    fmt.Sprintf("Missing required field: %s", fieldName),
		Field:      fieldName,
	}
}

func NewInvalidFieldError(fieldName string, reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidField,
		Details:    fmt.Sprintf("Invalid field %s: %s", fieldName, reason),
		Field:      fieldName,
	}
}

func NewMaxBodySizeExceededError(maxSize int64) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusRequestEntityTooLarge,
		err:        ErrMaxBodySizeExceeded,
		Details:    fmt.Sprintf("Request body size exceeded maximum allowed size of %d bytes", maxSize),
		Field:      "body_size",
	}
}

func NewInvalidJSONError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidJSON,
		Details:    "Invalid JSON format",
		Cause:      cause,
		Field:      "json",
	}
}

// Request & Input-Validation Error Type Checkers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidFieldError(err error) bool {
	return errors.Is(err, ErrInvalidField)
}

