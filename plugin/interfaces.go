package plugin

import (
	"context"
	"net/http"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/logging"
)

// Plugin is the minimal interface every admin plugin must implement.
type Plugin interface {
	Name() string
	// InitRequest is called once per request after construction.
	// Returning false removes the plugin from the request.
	InitRequest(ctx context.Context, args ...any) (bool, error)
	// Hooks lists the interceptors the plugin contributes to the view.
	Hooks() []hook.Func
}

// Host is the view instance a plugin is bound to for one request.
type Host interface {
	ViewName() string
	Attr(name string) (any, bool)
	Request() *http.Request
	// Method is the lower-cased request verb.
	Method() string
	User() auth.User
	PathArgs() map[string]string
	Logger() logging.Logger
	Services() *ServiceRegistry
	// Call invokes a view method through its hook chain.
	Call(name string, args ...any) (any, error)
}

// --- Optional Capability Interfaces ---
// The view detects these via type assertion.

// MediaProvider -- static assets a plugin needs on every page it is active on.
type MediaProvider interface {
	Media() []string
}

// Describer -- human readable description, surfaced by Type.Description.
type Describer interface {
	Description() string
}
