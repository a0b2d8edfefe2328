package permission

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Register mounts handler for each of methods with metadata attached.
func Register(r chi.Router, methods []string, path string, handler http.Handler, meta Meta) {
	if r == nil || handler == nil {
		return
	}
	wrapped := Wrap(handler, meta)
	for _, m := range methods {
		r.Method(strings.ToUpper(m), path, wrapped)
	}
}
