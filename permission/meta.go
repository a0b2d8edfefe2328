// Package permission attaches admin route metadata to handlers and lists
// it back from a chi router for the inspect command.
package permission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Meta describes the admin view behind a route.
type Meta struct {
	// Name is the reverse name, e.g. "blog_post_changelist".
	Name        string
	View        string
	Description string
	// IsPublic routes skip the site permission check.
	IsPublic    bool
	Permissions []string
}

// MetaHandler wraps a handler with permission metadata.
type MetaHandler struct {
	handler http.Handler
	Meta    Meta
}

func (h *MetaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Wrap attaches metadata to a handler.
func Wrap(handler http.Handler, meta Meta) http.Handler {
	if handler == nil {
		return handler
	}
	return &MetaHandler{handler: handler, Meta: meta}
}

// ExtractMeta returns metadata from a handler if present.
func ExtractMeta(handler http.Handler) (Meta, bool) {
	for handler != nil {
		if wrapped, ok := handler.(*MetaHandler); ok {
			return wrapped.Meta, true
		}
		// chi wraps handlers with ChainHandler when middleware is applied.
		if chained, ok := handler.(*chi.ChainHandler); ok {
			handler = chained.Endpoint
			continue
		}
		break
	}
	return Meta{}, false
}
