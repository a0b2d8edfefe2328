package site

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/http/middleware"
	"github.com/leeforge/adminsite/http/responder"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/permission"
	"github.com/leeforge/adminsite/view"
)

// Renderer writes what a view returned, or the error it failed with.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, v any, err error)
}

// JSONRenderer writes pages in the responder envelope. Values that are
// http.Handlers serve themselves.
type JSONRenderer struct{}

func (JSONRenderer) Render(w http.ResponseWriter, r *http.Request, v any, err error) {
	opts := []responder.Option{
		responder.WithTraceID(middleware.GetTraceIDFromRequest(r)),
		responder.WithTook(middleware.GetRequestDuration(r.Context())),
	}
	logger := logging.FromContext(r.Context())
	if err != nil {
		if status := errors.HTTPStatus(err); status >= http.StatusInternalServerError {
			logger.Error("view failed", zap.Error(err))
		} else {
			logger.Debug("view refused", zap.Error(err), zap.Int("status", status))
		}
		_ = responder.Fail(w, err, opts...)
		return
	}

	switch out := v.(type) {
	case http.Handler:
		out.ServeHTTP(w, r)
	case view.Page:
		status := out.Status
		if status == 0 {
			status = http.StatusOK
		}
		opts = append(opts, responder.WithTemplate(out.Template))
		if werr := responder.Write(w, status, out.Context, opts...); werr != nil {
			logger.Error("page encode failed", zap.Error(werr))
		}
	default:
		if werr := responder.OK(w, out, opts...); werr != nil {
			logger.Error("response encode failed", zap.Error(werr))
		}
	}
}

// Serve runs one request through rear customized by front. Views that
// need login are replaced by the login view when the user fails
// HasPermission.
func (s *Site) Serve(ctx context.Context, req view.Request, rear *view.Type, front *view.Config) (any, error) {
	if req.User == nil {
		req.User = auth.Anonymous
	}
	c := s.CreateViewClass(rear, front)
	if needsLogin(c) && !s.HasPermission(req.User) {
		login := s.loginFor(c)
		if login == nil {
			return nil, errors.NewForbidden("login required")
		}
		c = s.CreateViewClass(login, nil)
	}
	inst, err := c.New(ctx, req)
	if err != nil {
		return nil, err
	}
	return inst.Dispatch()
}

func needsLogin(c *view.Composed) bool {
	v, ok := c.Attr("need_login_permission")
	if !ok {
		return true
	}
	need, isBool := v.(bool)
	return !isBool || need
}

// loginFor prefers the view's login_view attr over the site login view.
func (s *Site) loginFor(c *view.Composed) *view.Type {
	if v, ok := c.Attr("login_view"); ok {
		if vt, ok := v.(*view.Type); ok && vt != nil {
			return vt
		}
	}
	return s.LoginView()
}

// Handler freezes the site and returns its router: URL views at their
// patterns, model views below "/{app}/{model}" for every registered model.
func (s *Site) Handler() http.Handler {
	s.Freeze()

	admin := chi.NewRouter()
	admin.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = responder.RouteNotFound(w, responder.WithTraceID(middleware.GetTraceIDFromRequest(r)))
	})
	admin.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = responder.MethodNotAllowed(w, responder.WithTraceID(middleware.GetTraceIDFromRequest(r)))
	})

	for _, r := range s.URLViews() {
		s.mount(admin, r.Pattern, r, nil)
	}
	for _, cfg := range s.ModelConfigs() {
		m := cfg.Model()
		for _, r := range s.ModelViews() {
			s.mount(admin, modelBase(m)+r.Pattern, r, cfg)
		}
	}

	root := chi.NewRouter()
	root.Use(
		middleware.TraceID(),
		middleware.Timing(),
		auth.Middleware(s.resolver),
		tagUser,
		logging.RecoveryMiddleware(s.logger),
		logging.HTTPMiddleware(s.logger),
	)
	root.Use(s.wrap...)
	if s.prefix == "" {
		root.Mount("/", admin)
	} else {
		root.Mount(s.prefix, admin)
	}
	return root
}

func (s *Site) mount(router chi.Router, pattern string, r Route, front *view.Config) {
	c := s.CreateViewClass(r.View, front)
	meta := permission.Meta{
		Name:        r.Name,
		View:        c.Name(),
		Description: attrOf(c, "title"),
		IsPublic:    !needsLogin(c),
	}
	if front != nil {
		m := front.Model()
		meta.Name = ModelRouteName(m, r.Name)
		if action := attrOf(c, "perm_action"); action != "" {
			meta.Permissions = []string{m.PermCode(action)}
		}
	}
	if pattern == "" {
		pattern = "/"
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params := map[string]string{}
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			for i, k := range rctx.URLParams.Keys {
				if k != "*" {
					params[k] = rctx.URLParams.Values[i]
				}
			}
		}
		out, err := s.Serve(req.Context(), view.Request{
			HTTP:   req,
			User:   auth.FromContext(req.Context()),
			Params: params,
		}, r.View, front)
		s.renderer.Render(w, req, out, err)
	})
	permission.Register(router, routeMethods(c), pattern, handler, meta)
}

// routeMethods lists the verbs c can dispatch.
func routeMethods(c *view.Composed) []string {
	allowed := view.DefaultMethodNames
	if v, ok := c.Attr("http_method_names"); ok {
		if list, ok := v.([]string); ok {
			allowed = list
		}
	}
	var out []string
	for _, m := range allowed {
		if c.HasMethod(m) || (m == "head" && c.HasMethod("get")) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []string{"get"}
	}
	return slices.Clip(out)
}

func attrOf(c *view.Composed, name string) string {
	v, _ := c.Attr(name)
	s, _ := v.(string)
	return s
}

// tagUser names the request user for the request logger.
func tagUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.SetUser(r.Context(), auth.FromContext(r.Context()).Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
