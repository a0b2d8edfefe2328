// Package site is the admin application context: it holds the model and
// view registries, synthesizes composed views on demand and serves them
// over HTTP.
//
// Registration happens at startup. Freeze ends it; Handler freezes
// implicitly. After that the tables are only read.
package site

import (
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/view"
)

// PermissionFunc decides whether a user may use views that need login.
type PermissionFunc func(u auth.User) bool

// DefaultPermission admits active staff users.
func DefaultPermission(u auth.User) bool {
	return u != nil && u.IsActive() && u.IsStaff()
}

var _ view.Site = (*Site)(nil)

// Site is an admin site.
type Site struct {
	name     string
	prefix   string
	logger   logging.Logger
	services *plugin.ServiceRegistry
	renderer Renderer
	allow    PermissionFunc
	resolver auth.Resolver
	wrap     []func(http.Handler) http.Handler

	mu         sync.RWMutex
	frozen     bool
	models     map[*model.Model]*view.Config
	modelOrder []*model.Model
	nextOrder  int
	views      map[*view.Type]*view.Config
	plugins    map[*view.Type][]*plugin.Type
	urlViews   []Route
	modelViews []Route
	loginView  *view.Type

	composed    sync.Map // level key -> *view.Composed
	specialized sync.Map // config ids + plugin id -> *plugin.Type
}

// Option configures a Site.
type Option func(*Site)

func WithLogger(l logging.Logger) Option {
	return func(s *Site) {
		s.logger = l
	}
}

func WithServices(sr *plugin.ServiceRegistry) Option {
	return func(s *Site) {
		s.services = sr
	}
}

// WithPrefix mounts the site below prefix, e.g. "/admin".
func WithPrefix(prefix string) Option {
	return func(s *Site) {
		s.prefix = "/" + strings.Trim(prefix, "/")
		if s.prefix == "/" {
			s.prefix = ""
		}
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *Site) {
		s.renderer = r
	}
}

// WithPermission replaces DefaultPermission.
func WithPermission(fn PermissionFunc) Option {
	return func(s *Site) {
		s.allow = fn
	}
}

// WithResolver resolves the request user when the context carries none.
func WithResolver(r auth.Resolver) Option {
	return func(s *Site) {
		s.resolver = r
	}
}

// WithMiddleware adds middleware run inside the trace, auth and logging
// middleware of Handler.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Site) {
		s.wrap = append(s.wrap, mw...)
	}
}

// New creates an empty site named name.
func New(name string, opts ...Option) *Site {
	s := &Site{
		name:    name,
		logger:  logging.Nop(),
		allow:   DefaultPermission,
		models:  make(map[*model.Model]*view.Config),
		views:   make(map[*view.Type]*view.Config),
		plugins: make(map[*view.Type][]*plugin.Type),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.services == nil {
		s.services = plugin.NewServiceRegistry()
	}
	if s.renderer == nil {
		s.renderer = &JSONRenderer{}
	}
	s.logger = s.logger.Named("site").With(zap.String("site", name))
	return s
}

func (s *Site) Name() string { return s.name }

func (s *Site) Prefix() string { return s.prefix }

func (s *Site) Logger() logging.Logger { return s.logger }

func (s *Site) Services() *plugin.ServiceRegistry { return s.services }

// HasPermission reports whether u may use views that need login.
func (s *Site) HasPermission(u auth.User) bool {
	return s.allow(u)
}

// Freeze ends the registration phase.
func (s *Site) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.frozen {
		s.frozen = true
		s.logger.Info("site frozen")
	}
}

func (s *Site) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// mutable must be called with mu held.
func (s *Site) mutable() error {
	if s.frozen {
		return errors.NewImproperlyConfigured("site %s is frozen; register before serving", s.name)
	}
	return nil
}
