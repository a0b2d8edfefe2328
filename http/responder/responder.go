// Package responder writes the JSON envelope admin pages and errors are
// served in.
package responder

import (
	"net/http"

	"github.com/leeforge/adminsite/json"
)

var encodeFailed = []byte("{\"error\":{\"code\":500,\"message\":\"encode failed\"}}")

// writeJSON is the internal helper for all global functions
func writeJSON(w http.ResponseWriter, status int, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailed)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(raw)
	return err
}

// Write sends a success response with data
func Write(w http.ResponseWriter, status int, data any, opts ...Option) error {
	meta := NewMeta(opts...)
	res := &Response{
		Data: data,
		Meta: *meta,
	}
	return writeJSON(w, status, res)
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, status int, err Error, opts ...Option) error {
	meta := NewMeta(opts...)
	res := &Response{
		Error: &err,
		Meta:  *meta,
	}
	return writeJSON(w, status, res)
}

// Fail maps err to its status and envelope and writes it.
func Fail(w http.ResponseWriter, err error, opts ...Option) error {
	status, body := FromError(err)
	return WriteError(w, status, body, opts...)
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, data any, opts ...Option) error {
	return Write(w, http.StatusOK, data, opts...)
}

// RouteNotFound responds with 404 for unknown admin paths
func RouteNotFound(w http.ResponseWriter, opts ...Option) error {
	return WriteError(w, http.StatusNotFound, NewError(ErrCodeRouteNotFound, ""), opts...)
}

// MethodNotAllowed responds with 405
func MethodNotAllowed(w http.ResponseWriter, opts ...Option) error {
	return WriteError(w, http.StatusMethodNotAllowed, NewError(ErrCodeMethodNotAllowed, ""), opts...)
}
