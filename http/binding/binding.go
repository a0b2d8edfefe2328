// Package binding decodes request query strings and bodies for views.
package binding

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validatorV10 "github.com/go-playground/validator/v10"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/json"
)

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Query binds the query string of r into v, a pointer to struct. Fields
// are named by their query tag, fall back to their default tag and are
// then validated.
func Query(r *http.Request, v any) error {
	return NewQueryParser().Bind(r.URL.Query(), v)
}

// Values decodes a JSON object body, or a form encoded one, into a flat
// map. Form fields keep their first value.
func Values(r *http.Request) (map[string]any, error) {
	out := map[string]any{}
	if r == nil {
		return out, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if r.Body == nil {
			return out, nil
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, &BindError{Type: "bind_error", Message: "failed to read request body: " + err.Error()}
		}
		if len(body) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &BindError{Type: "json_error", Message: "failed to unmarshal JSON: " + err.Error()}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, &BindError{Type: "bind_error", Message: "malformed form body: " + err.Error()}
	}
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

// validate runs the validate tags of v.
func validate(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validatorV10.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return &BindError{Type: "validation_error", Message: err.Error()}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, BindError{
			Type:    "validation_error",
			Field:   fe.Field(),
			Message: getValidationMessage(fe),
		})
	}
	return out
}

// AppError turns a binding failure into a validation error whose details
// map each failing field to its message.
func AppError(err error) error {
	if err == nil {
		return nil
	}
	appErr := errors.NewValidation("invalid request parameters").WithInnerError(err)

	var fields ValidationErrors
	if stderrors.As(err, &fields) {
		for _, fe := range fields {
			appErr.WithDetail(fe.Field, fe.Message)
		}
		return appErr
	}
	var be *BindError
	if stderrors.As(err, &be) && be.Field != "" {
		appErr.WithDetail(be.Field, be.Message)
	}
	return appErr
}
