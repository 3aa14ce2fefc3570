// Package apierror defines the JSON error envelope of the admin API.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// Error codes returned by the admin API.
const (
	// System errors (000xxx)
	CodeInternalError    = "000001"
	CodeInvalidParameter = "000002"
	CodeUnavailable      = "000003"

	// Translation and execution errors (001xxx)
	CodeTranslationError = "001003"
	CodeExecutionError   = "001007"

	// Object errors (002xxx)
	CodeNotFound = "002003"
)

// SQL states reported when the database does not supply one.
const (
	SQLStateSyntaxError  = "42000"
	SQLStateGeneralError = "HY000"
)

// CompatError is an admin API error.
type CompatError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	SQLState string         `json:"sqlState,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *CompatError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithData adds data to the error.
func (e *CompatError) WithData(key string, value any) *CompatError {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Is checks if this error matches another error by code.
func (e *CompatError) Is(target error) bool {
	var ce *CompatError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// HTTPStatus maps the error code to an HTTP status.
func (e *CompatError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidParameter:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTranslationError, CodeExecutionError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body written for every error.
type ErrorResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Code     string         `json:"code"`
	SQLState string         `json:"sqlState,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ToResponse converts the error to an ErrorResponse.
func (e *CompatError) ToResponse() *ErrorResponse {
	var data map[string]any
	if len(e.Data) > 0 {
		data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
	}
	return &ErrorResponse{
		Success:  false,
		Message:  e.Message,
		Code:     e.Code,
		SQLState: e.SQLState,
		Data:     data,
	}
}

// New creates an error with the given code and message.
func New(code, message string) *CompatError {
	return &CompatError{Code: code, Message: message}
}

// NewInvalidParameterError creates an invalid parameter error.
func NewInvalidParameterError(paramName, reason string) *CompatError {
	return &CompatError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("Invalid parameter '%s': %s", paramName, reason),
		Data:    map[string]any{"paramName": paramName},
	}
}

// NewUnavailableError reports a feature that needs a database connection the
// server was started without.
func NewUnavailableError(feature string) *CompatError {
	return &CompatError{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s requires a database connection", feature),
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(objectType, objectName string) *CompatError {
	return &CompatError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("Object not found: %s '%s'", objectType, objectName),
		Data: map[string]any{
			"objectType": objectType,
			"objectName": objectName,
		},
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *CompatError {
	return &CompatError{
		Code:     CodeInternalError,
		Message:  message,
		SQLState: SQLStateGeneralError,
	}
}

// FromExecutionError converts an error returned by the resilient executor.
// A refused translation becomes a translation error; database errors keep
// their SQLSTATE.
func FromExecutionError(err error) *CompatError {
	if err == nil {
		return nil
	}
	if errors.Is(err, query.ErrIterationLimit) {
		return &CompatError{
			Code:     CodeTranslationError,
			Message:  err.Error(),
			SQLState: SQLStateSyntaxError,
		}
	}

	state := query.SQLState(err)
	if state == "" {
		state = SQLStateGeneralError
	}
	ce := &CompatError{
		Code:     CodeExecutionError,
		Message:  err.Error(),
		SQLState: state,
	}
	switch {
	case query.IsTransactionAborted(err):
		ce.WithData("class", "transaction_aborted")
	case query.IsSyntaxError(err):
		ce.WithData("class", "syntax_error")
	case query.IsMissingRoutine(err):
		ce.WithData("class", "missing_routine")
	}
	return ce
}

// FromError converts any error to a CompatError. A CompatError is returned
// as-is; nil stays nil; anything else becomes an internal error.
func FromError(err error) *CompatError {
	if err == nil {
		return nil
	}
	var ce *CompatError
	if errors.As(err, &ce) {
		return ce
	}
	return NewInternalError(err.Error())
}
