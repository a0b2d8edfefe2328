package view

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
)

// DefaultMethodNames are the verbs a view accepts unless its
// http_method_names attr says otherwise.
var DefaultMethodNames = []string{"get", "post", "put", "patch", "delete", "head", "options", "trace"}

// Request carries what a view instance is built from.
type Request struct {
	HTTP   *http.Request
	User   auth.User
	Params map[string]string
	// Args are handed to every plugin's InitRequest.
	Args []any
}

// PluginStatus records how one plugin fared during activation.
type PluginStatus struct {
	Name  string
	State plugin.State
}

// Instance is a composed view bound to one request.
type Instance struct {
	ctx     context.Context
	view    *Composed
	req     *http.Request
	method  string
	user    auth.User
	params  map[string]string
	logger  logging.Logger
	plugins []plugin.Plugin
	status  []PluginStatus
	hooks   *hook.Set
	locals  map[string]any
}

var _ plugin.Host = (*Instance)(nil)

// New binds c to a request: it constructs one plugin per plugin type,
// keeps those whose InitRequest accepts the request and then runs the
// view's own init_request.
func (c *Composed) New(ctx context.Context, r Request) (*Instance, error) {
	method := "get"
	if r.HTTP != nil {
		method = strings.ToLower(r.HTTP.Method)
	}
	user := r.User
	if user == nil {
		user = auth.Anonymous
	}
	logger := logging.Nop()
	if c.site != nil && c.site.Logger() != nil {
		logger = c.site.Logger()
	}
	inst := &Instance{
		ctx:    ctx,
		view:   c,
		req:    r.HTTP,
		method: method,
		user:   user,
		params: r.Params,
		logger: logging.WithContext(logger, ctx).With(logging.View(c.name)),
		hooks:  hook.NewSet(),
		locals: make(map[string]any),
	}
	if inst.params == nil {
		inst.params = map[string]string{}
	}

	constructed := make([]plugin.Plugin, 0, len(c.plugins))
	for _, pt := range c.plugins {
		constructed = append(constructed, pt.New(inst))
		inst.status = append(inst.status, PluginStatus{Name: pt.Name(), State: plugin.StateConstructed})
	}

	for i, p := range constructed {
		keep, err := p.InitRequest(ctx, r.Args...)
		if err != nil {
			inst.status[i].State = plugin.StateFailed
			inst.logger.Warn("plugin init failed", logging.Plugin(p.Name()), zap.Error(err))
			return nil, err
		}
		state := plugin.StateInactive
		if keep {
			state = plugin.StateActive
		}
		inst.status[i].State = state
		if state.Participates() {
			inst.plugins = append(inst.plugins, p)
			inst.hooks.Add(p.Name(), p.Hooks()...)
		}
	}

	if c.HasMethod("init_request") {
		if _, err := inst.Call("init_request", r.Args...); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (i *Instance) Context() context.Context { return i.ctx }

func (i *Instance) View() *Composed { return i.view }

func (i *Instance) ViewName() string { return i.view.name }

func (i *Instance) Request() *http.Request { return i.req }

func (i *Instance) Method() string { return i.method }

func (i *Instance) User() auth.User { return i.user }

func (i *Instance) PathArgs() map[string]string { return i.params }

func (i *Instance) Logger() logging.Logger { return i.logger }

func (i *Instance) Site() Site { return i.view.site }

func (i *Instance) Model() *model.Model { return i.view.Model() }

func (i *Instance) Services() *plugin.ServiceRegistry {
	if i.view.site == nil {
		return nil
	}
	return i.view.site.Services()
}

// Plugins returns the plugins that survived activation, in hook order.
func (i *Instance) Plugins() []plugin.Plugin { return slices.Clone(i.plugins) }

// PluginStatus lists every constructed plugin with its activation state.
func (i *Instance) PluginStatus() []PluginStatus { return slices.Clone(i.status) }

// Hooks exposes the request's hook index.
func (i *Instance) Hooks() *hook.Set { return i.hooks }

// Attr returns a request-local value set with SetAttr, else resolves name
// along the composed levels.
func (i *Instance) Attr(name string) (any, bool) {
	if v, ok := i.locals[name]; ok {
		return v, true
	}
	return i.view.Attr(name)
}

// SetAttr stores a request-local attribute.
func (i *Instance) SetAttr(name string, value any) {
	i.locals[name] = value
}

// Call invokes the outermost implementation of name. Hooked methods run
// through the plugin chain; args reach both the plugins and the method.
func (i *Instance) Call(name string, args ...any) (any, error) {
	pos, m, ok := i.view.resolve(name, 0)
	if !ok {
		return nil, errors.NewImproperlyConfigured("view %s has no method %s", i.view.name, name)
	}
	core := func() (any, error) {
		return m.Fn(&Frame{inst: i, name: name, pos: pos}, args...)
	}
	if i.view.hooked[name] {
		return i.hooks.Run(name, core, args...)
	}
	return core()
}

// Dispatch routes the request verb to its handler method.
func (i *Instance) Dispatch() (any, error) {
	allowed := plugin.AttrStrings(i, "http_method_names")
	if allowed == nil {
		allowed = DefaultMethodNames
	}
	if !slices.Contains(allowed, i.method) {
		return nil, errors.NewMethodNotAllowed(i.method)
	}
	name := i.method
	if name == "head" && !i.view.HasMethod("head") {
		name = "get"
	}
	if !i.view.HasMethod(name) {
		return nil, errors.NewMethodNotAllowed(i.method)
	}
	i.logger.Debug("view dispatch", zap.String("method", name))
	return i.Call(name)
}

// CallAs calls name and casts the result. A nil result yields the zero T.
func CallAs[T any](i *Instance, name string, args ...any) (T, error) {
	var zero T
	v, err := i.Call(name, args...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.NewImproperlyConfigured("view %s: %s returned %T", i.view.name, name, v)
	}
	return t, nil
}

// Frame is the calling context of one method implementation.
type Frame struct {
	inst *Instance
	name string
	pos  int
}

func (f *Frame) Instance() *Instance { return f.inst }

func (f *Frame) Context() context.Context { return f.inst.ctx }

func (f *Frame) Attr(name string) (any, bool) { return f.inst.Attr(name) }

// Call invokes another view method from the outermost level.
func (f *Frame) Call(name string, args ...any) (any, error) {
	return f.inst.Call(name, args...)
}

// Super runs the next implementation of the current method below this
// level. Plugins are not run again.
func (f *Frame) Super(args ...any) (any, error) {
	pos, m, ok := f.inst.view.resolve(f.name, f.pos+1)
	if !ok {
		return nil, errors.NewImproperlyConfigured("view %s: no parent implementation of %s", f.inst.view.name, f.name)
	}
	return m.Fn(&Frame{inst: f.inst, name: f.name, pos: pos}, args...)
}

// HasSuper reports whether a parent implementation exists.
func (f *Frame) HasSuper() bool {
	_, _, ok := f.inst.view.resolve(f.name, f.pos+1)
	return ok
}

// SuperContext runs Super and expects a context map back.
func (f *Frame) SuperContext(args ...any) (map[string]any, error) {
	v, err := f.Super(args...)
	if err != nil {
		return nil, err
	}
	ctx, _ := v.(map[string]any)
	if ctx == nil {
		ctx = map[string]any{}
	}
	return ctx, nil
}

// AttrString returns an attr as a string, or def.
func (f *Frame) AttrString(name, def string) string {
	if v, ok := f.inst.Attr(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// AttrInt returns an attr as an int, or def.
func (f *Frame) AttrInt(name string, def int) int {
	if v, ok := f.inst.Attr(name); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

// AttrBool returns an attr as a bool, or def.
func (f *Frame) AttrBool(name string, def bool) bool {
	if v, ok := f.inst.Attr(name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// AttrStrings returns a string list attr.
func (f *Frame) AttrStrings(name string) []string {
	return plugin.AttrStrings(f.inst, name)
}
