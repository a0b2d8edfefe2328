package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Registration errors
	ErrorTypeAlreadyRegistered    ErrorType = "already_registered"
	ErrorTypeNotRegistered        ErrorType = "not_registered"
	ErrorTypeTypeErrorRegistered  ErrorType = "type_error_registered"
	ErrorTypeImproperlyConfigured ErrorType = "improperly_configured"

	// Hook chain errors
	ErrorTypeIncorrectPluginArg ErrorType = "incorrect_plugin_arg"

	// Request errors
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeForbidden        ErrorType = "forbidden"
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Sentinels for errors.Is. Matching is by ErrorType only.
var (
	ErrAlreadyRegistered    = &AppError{Type: ErrorTypeAlreadyRegistered}
	ErrNotRegistered        = &AppError{Type: ErrorTypeNotRegistered}
	ErrTypeErrorRegistered  = &AppError{Type: ErrorTypeTypeErrorRegistered}
	ErrImproperlyConfigured = &AppError{Type: ErrorTypeImproperlyConfigured}
	ErrIncorrectPluginArg   = &AppError{Type: ErrorTypeIncorrectPluginArg}
	ErrValidation           = &AppError{Type: ErrorTypeValidation}
	ErrForbidden            = &AppError{Type: ErrorTypeForbidden}
	ErrMethodNotAllowed     = &AppError{Type: ErrorTypeMethodNotAllowed}
	ErrNotFound             = &AppError{Type: ErrorTypeNotFound}
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []string       `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.InnerError != nil {
		return e.InnerError.Error()
	}
	return string(e.Type)
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3)
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    strings.ToUpper(string(errType)),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       strings.ToUpper(string(ErrorTypeUnknown)),
		Message:    err.Error(),
		InnerError: err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with a specific type
func Wrap(err error, errType ErrorType, message string) *AppError {
	return New(errType, message).WithInnerError(err)
}

// IsType reports whether any error in err's chain is an AppError of errType.
func IsType(err error, errType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errType})
}

// HTTPStatus returns the status carried by err, 500 when none.
func HTTPStatus(err error) int {
	if appErr := FromError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// NewAlreadyRegistered reports a model or view bound twice.
func NewAlreadyRegistered(target string) *AppError {
	return New(ErrorTypeAlreadyRegistered, fmt.Sprintf("%s is already registered", target)).
		WithDetail("target", target).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewNotRegistered reports an unregister of an absent entry.
func NewNotRegistered(target string) *AppError {
	return New(ErrorTypeNotRegistered, fmt.Sprintf("%s is not registered", target)).
		WithDetail("target", target).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewTypeErrorRegistered reports a registration target that is neither model nor view.
func NewTypeErrorRegistered(target any) *AppError {
	return New(ErrorTypeTypeErrorRegistered, fmt.Sprintf("%T cannot be registered", target)).
		WithDetail("type", fmt.Sprintf("%T", target)).
		WithHTTPStatus(http.StatusInternalServerError)
}

func NewImproperlyConfigured(format string, args ...any) *AppError {
	return New(ErrorTypeImproperlyConfigured, fmt.Sprintf(format, args...)).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewIncorrectPluginArg reports a plugin hook that broke its calling contract.
func NewIncorrectPluginArg(hookName, plugin, reason string) *AppError {
	return New(ErrorTypeIncorrectPluginArg, fmt.Sprintf("plugin %s hook %s: %s", plugin, hookName, reason)).
		WithDetail("hook", hookName).
		WithDetail("plugin", plugin).
		WithHTTPStatus(http.StatusInternalServerError)
}

func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message).WithHTTPStatus(http.StatusBadRequest)
}

func NewNotFound(resource string, id any) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithHTTPStatus(http.StatusNotFound)
}

func NewForbidden(message string) *AppError {
	return New(ErrorTypeForbidden, message).WithHTTPStatus(http.StatusForbidden)
}

func NewMethodNotAllowed(method string) *AppError {
	return New(ErrorTypeMethodNotAllowed, fmt.Sprintf("method %s not allowed", strings.ToUpper(method))).
		WithDetail("method", method).
		WithHTTPStatus(http.StatusMethodNotAllowed)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message).WithHTTPStatus(http.StatusInternalServerError)
}

// Recover converts a recovered panic value into an AppError with a stack.
func Recover(r any) *AppError {
	var appErr *AppError
	switch v := r.(type) {
	case error:
		appErr = Wrap(v, ErrorTypeInternal, "panic recovered: "+v.Error())
	case string:
		appErr = New(ErrorTypeInternal, v)
	default:
		appErr = New(ErrorTypeInternal, fmt.Sprintf("%v", v))
	}
	return appErr.WithHTTPStatus(http.StatusInternalServerError).WithStack()
}

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}

// ErrorChain collects several errors, used for startup validation.
type ErrorChain struct {
	errors []*AppError
}

func NewErrorChain() *ErrorChain {
	return &ErrorChain{}
}

// Add appends err when non-nil.
func (c *ErrorChain) Add(err error) *ErrorChain {
	if err != nil {
		c.errors = append(c.errors, FromError(err))
	}
	return c
}

func (c *ErrorChain) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *ErrorChain) Errors() []*AppError {
	return c.errors
}

// Err returns nil, the single error, or the chain itself.
func (c *ErrorChain) Err() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}
	return c
}

func (c *ErrorChain) Error() string {
	msgs := make([]string, len(c.errors))
	for i, err := range c.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is matches when any collected error matches target.
func (c *ErrorChain) Is(target error) bool {
	for _, err := range c.errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
