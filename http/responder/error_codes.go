package responder

import (
	"net/http"

	"github.com/leeforge/adminsite/errors"
)

// Error codes carried in the envelope
const (
	// 4xxx - client errors
	ErrCodeBadRequest       = 4000
	ErrCodeValidationFailed = 4002
	ErrCodeNotFound         = 4003
	ErrCodeRouteNotFound    = 4004
	ErrCodeForbidden        = 4005
	ErrCodeMethodNotAllowed = 4010
	ErrCodeTooLarge         = 4013

	// 5xxx - server errors
	ErrCodeInternalServer       = 5000
	ErrCodeImproperlyConfigured = 5010
	ErrCodePluginArg            = 5011
	ErrCodeRegistry             = 5012
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:           "Bad Request",
	ErrCodeValidationFailed:     "Validation Failed",
	ErrCodeNotFound:             "Resource Not Found",
	ErrCodeRouteNotFound:        "Route Not Found",
	ErrCodeForbidden:            "Forbidden",
	ErrCodeMethodNotAllowed:     "Method Not Allowed",
	ErrCodeTooLarge:             "Request Entity Too Large",
	ErrCodeInternalServer:       "Internal Server Error",
	ErrCodeImproperlyConfigured: "Improperly Configured",
	ErrCodePluginArg:            "Incorrect Plugin Argument",
	ErrCodeRegistry:             "Registry Error",
}

var typeCodes = map[errors.ErrorType]int{
	errors.ErrorTypeValidation:           ErrCodeValidationFailed,
	errors.ErrorTypeNotFound:             ErrCodeNotFound,
	errors.ErrorTypeForbidden:            ErrCodeForbidden,
	errors.ErrorTypeMethodNotAllowed:     ErrCodeMethodNotAllowed,
	errors.ErrorTypeImproperlyConfigured: ErrCodeImproperlyConfigured,
	errors.ErrorTypeIncorrectPluginArg:   ErrCodePluginArg,
	errors.ErrorTypeAlreadyRegistered:    ErrCodeRegistry,
	errors.ErrorTypeNotRegistered:        ErrCodeRegistry,
	errors.ErrorTypeTypeErrorRegistered:  ErrCodeRegistry,
	errors.ErrorTypeInternal:             ErrCodeInternalServer,
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new Error with code and message
func NewError(code int, message string) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{
		Code:    code,
		Message: message,
	}
}

// FromError converts err into an HTTP status and envelope error. Server
// side failures keep their message out of the envelope.
func FromError(err error) (int, Error) {
	appErr := errors.FromError(err)
	status := errors.HTTPStatus(appErr)
	code, ok := typeCodes[appErr.Type]
	if !ok {
		code = ErrCodeInternalServer
	}
	out := NewError(code, appErr.Message)
	if status >= http.StatusInternalServerError {
		out.Message = GetErrorMessage(code)
	} else if len(appErr.Details) > 0 {
		out.Details = appErr.Details
	}
	out.Type = string(appErr.Type)
	return status, out
}
