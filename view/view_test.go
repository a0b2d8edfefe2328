package view

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/adminsite/auth"
	apperrors "github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
)

type fakeSite struct {
	services *plugin.ServiceRegistry
}

func (s *fakeSite) Name() string                      { return "test admin" }
func (s *fakeSite) Logger() logging.Logger            { return logging.Nop() }
func (s *fakeSite) Services() *plugin.ServiceRegistry { return s.services }
func (s *fakeSite) Menus(auth.User) []*MenuItem       { return nil }

func (s *fakeSite) URL(name string, args ...string) (string, error) {
	return "/" + strings.Join(append([]string{name}, args...), "/"), nil
}

// hookPlugin contributes the hooks handed to its type.
type hookPlugin struct {
	plugin.Base
	hooks  []hook.Func
	active *bool
}

func (p *hookPlugin) InitRequest(ctx context.Context, args ...any) (bool, error) {
	if p.active != nil && !*p.active {
		return false, nil
	}
	return p.Base.InitRequest(ctx, args...)
}

func (p *hookPlugin) Hooks() []hook.Func { return p.hooks }

func hookType(name string, hooks ...hook.Func) *plugin.Type {
	return plugin.NewType(name, func(b plugin.Base) plugin.Plugin {
		return &hookPlugin{Base: b, hooks: hooks}
	})
}

func compose(rear *Type, front *Config, plugins ...*plugin.Type) *Composed {
	return NewComposed(&fakeSite{services: plugin.NewServiceRegistry()}, rear, front, Levels(rear, front, nil), plugins)
}

func TestLinearizeKeepsLastOccurrence(t *testing.T) {
	base := NewType("Base")
	left := NewType("Left", Extends(base))
	right := NewType("Right", Extends(base))
	both := NewType("Both", Extends(left, right))

	var names []string
	for _, ty := range both.MRO() {
		names = append(names, ty.Name())
	}
	assert.Equal(t, []string{"Both", "Left", "Right", "Base"}, names)
	assert.True(t, both.Is(base))
	assert.False(t, base.Is(both))
}

func TestAttrResolution(t *testing.T) {
	parentCfg := NewConfig("Parent", Set("title", "parent"), Set("per_page", 5))
	front := parentCfg.Derive("Child", Set("title", "child"))
	viewCfg := NewConfig("ListConfig", Set("per_page", 10), Set("menu_icon", "list"))

	levels := Levels(List, front, func(ty *Type) *Config {
		if ty == List {
			return viewCfg
		}
		return nil
	})
	c := NewComposed(&fakeSite{}, List, front, levels, nil)

	v, _ := c.Attr("title")
	assert.Equal(t, "child", v)
	v, _ = c.Attr("per_page")
	assert.Equal(t, 5, v, "front chain wins over view config")
	v, _ = c.Attr("menu_icon")
	assert.Equal(t, "list", v)
	v, _ = c.Attr("template")
	assert.Equal(t, "admin/model_list.html", v)
	assert.Equal(t, "ChildParentListConfigList", c.Name())

	again := NewComposed(&fakeSite{}, List, front, Levels(List, front, func(ty *Type) *Config {
		if ty == List {
			return viewCfg
		}
		return nil
	}), nil)
	assert.Equal(t, c.Key(), again.Key())
}

func TestPluginActivation(t *testing.T) {
	off := false
	excluded := hookType("Excluded")
	inactive := plugin.NewType("Inactive", func(b plugin.Base) plugin.Plugin {
		return &hookPlugin{Base: b, active: &off}
	})
	kept := hookType("Kept")

	cfg := NewConfig("Cfg", Set(plugin.ExcludeAttr, []string{"Excluded"}))
	inst, err := compose(Template, cfg, excluded, inactive, kept).New(context.Background(), Request{})
	require.NoError(t, err)

	require.Len(t, inst.Plugins(), 1)
	assert.Equal(t, "Kept", inst.Plugins()[0].Name())
	status := inst.PluginStatus()
	assert.Equal(t, plugin.StateInactive, status[0].State)
	assert.Equal(t, plugin.StateInactive, status[1].State)
	assert.Equal(t, plugin.StateActive, status[2].State)

	var participating []string
	for _, st := range status {
		if st.State.Participates() {
			participating = append(participating, st.Name)
		}
	}
	assert.Equal(t, []string{"Kept"}, participating)
}

func TestPluginInitErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	failing := plugin.NewType("Failing", func(b plugin.Base) plugin.Plugin {
		return &failingPlugin{Base: b, err: boom}
	})
	_, err := compose(Template, nil, failing).New(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

type failingPlugin struct {
	plugin.Base
	err error
}

func (p *failingPlugin) InitRequest(context.Context, ...any) (bool, error) { return false, p.err }

func TestHookedCallRunsPluginsOnce(t *testing.T) {
	calls := 0
	counter := hookType("Counter", hook.After[map[string]any]("get_context", func(ctx map[string]any, _ ...any) (map[string]any, error) {
		calls++
		ctx["counted"] = calls
		return ctx, nil
	}))
	inst, err := compose(Dashboard, nil, counter).New(context.Background(), Request{})
	require.NoError(t, err)

	ctx, err := CallAs[map[string]any](inst, "get_context")
	require.NoError(t, err)
	// Dashboard, Layout and Template each implement get_context; the
	// plugin still runs once.
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ctx["counted"])
	assert.Equal(t, "Dashboard", ctx["title"])
	assert.Contains(t, ctx, "nav_menu")
}

func TestBeforeHookShortCircuits(t *testing.T) {
	stop := hookType("Stop", hook.Before[any]("get_response", func(next func() (any, error), _ ...any) (any, error) {
		return "short", nil
	}))
	inst, err := compose(Layout, nil, stop).New(context.Background(), Request{})
	require.NoError(t, err)

	out, err := inst.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, "short", out)
}

func TestObserverRequiresEmptyResult(t *testing.T) {
	watch := hookType("Watch", hook.Observer("get_media", func(...any) error { return nil }))
	inst, err := compose(Template, nil, watch).New(context.Background(), Request{})
	require.NoError(t, err)

	_, err = inst.Call("get_media")
	require.NoError(t, err, "empty media list is an empty result")

	withMedia := NewConfig("Cfg", Set("media", []string{"a.js"}))
	inst, err = compose(Template, withMedia, watch).New(context.Background(), Request{})
	require.NoError(t, err)
	_, err = inst.Call("get_media")
	assert.ErrorIs(t, err, apperrors.ErrIncorrectPluginArg)
}

type mediaPlugin struct {
	plugin.Base
}

func (p *mediaPlugin) Media() []string { return []string{"plugin.js", "a.js"} }

func TestMediaIncludesPluginAssets(t *testing.T) {
	mt := plugin.NewType("Media", func(b plugin.Base) plugin.Plugin { return &mediaPlugin{Base: b} })
	cfg := NewConfig("Cfg", Set("media", []string{"a.js"}))
	inst, err := compose(Template, cfg, mt).New(context.Background(), Request{})
	require.NoError(t, err)

	media, err := CallAs[[]string](inst, "get_media")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "plugin.js"}, media)
}

func TestDispatch(t *testing.T) {
	c := compose(Dashboard, nil)

	head := httptest.NewRequest(http.MethodHead, "/", nil)
	inst, err := c.New(context.Background(), Request{HTTP: head})
	require.NoError(t, err)
	out, err := inst.Dispatch()
	require.NoError(t, err)
	page, ok := out.(Page)
	require.True(t, ok)
	assert.Equal(t, "admin/dashboard.html", page.Template)

	post := httptest.NewRequest(http.MethodPost, "/", nil)
	inst, err = c.New(context.Background(), Request{HTTP: post})
	require.NoError(t, err)
	_, err = inst.Dispatch()
	assert.ErrorIs(t, err, apperrors.ErrMethodNotAllowed)

	restricted := compose(Dashboard, NewConfig("Cfg", Set("http_method_names", []string{"post"})))
	inst, err = restricted.New(context.Background(), Request{HTTP: httptest.NewRequest(http.MethodGet, "/", nil)})
	require.NoError(t, err)
	_, err = inst.Dispatch()
	assert.ErrorIs(t, err, apperrors.ErrMethodNotAllowed)
}

func TestConfigOverrideAndSuper(t *testing.T) {
	cfg := NewConfig("Cfg", Override("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["extra"] = true
		return ctx, nil
	}))
	inst, err := compose(Layout, cfg).New(context.Background(), Request{})
	require.NoError(t, err)

	ctx, err := CallAs[map[string]any](inst, "get_context")
	require.NoError(t, err)
	assert.Equal(t, true, ctx["extra"])
	assert.Contains(t, ctx, "breadcrumbs")
	assert.True(t, inst.View().Hooked("get_context"))
	assert.False(t, inst.View().Hooked("get"))
}

func postModel() (*model.Model, *model.MemoryManager) {
	mgr := model.NewMemoryManager("post",
		model.Record{"title": "Hello", "status": "draft"},
		model.Record{"title": "World", "status": "published"},
	)
	return model.New("blog", "Post", mgr), mgr
}

func staff(perms ...string) auth.User {
	return &auth.StaticUser{UserID: "1", Name: "alice", Active: true, Staff: true, Perms: perms}
}

func TestListView(t *testing.T) {
	m, _ := postModel()
	cfg := NewConfig("PostAdmin", ForModel(m), Set("list_filter", []string{"status"}))
	c := compose(List, cfg)

	_, err := c.New(context.Background(), Request{User: staff()})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	r := httptest.NewRequest(http.MethodGet, "/blog/post/?status=published", nil)
	inst, err := c.New(context.Background(), Request{HTTP: r, User: staff("blog.change_post")})
	require.NoError(t, err)

	out, err := inst.Dispatch()
	require.NoError(t, err)
	page := out.(Page)
	assert.Equal(t, 1, page.Context["result_count"])
	rows := page.Context["results"].([]model.Record)
	require.Len(t, rows, 1)
	assert.Equal(t, "World", rows[0]["title"])
	assert.Equal(t, "blog.post", page.Context["opts"])
	assert.Equal(t, map[string]bool{"view": true, "add": false, "change": true, "delete": false}, page.Context["model_perms"])

	crumbs := page.Context["breadcrumbs"].([]Crumb)
	require.Len(t, crumbs, 2)
	assert.Equal(t, "/blog_post_changelist", crumbs[1].URL)
}

func TestListQueryParams(t *testing.T) {
	m, _ := postModel()
	c := compose(List, NewConfig("PostAdmin", ForModel(m), Set("list_per_page", 1)))
	user := staff("blog.view_post")

	r := httptest.NewRequest(http.MethodGet, "/blog/post/?o=-title&p=2", nil)
	inst, err := c.New(context.Background(), Request{HTTP: r, User: user})
	require.NoError(t, err)
	q, err := CallAs[model.Query](inst, "get_list_queryset")
	require.NoError(t, err)
	assert.Equal(t, []string{"-title"}, q.Ordering)
	assert.Equal(t, 1, q.Offset)
	assert.Equal(t, 1, q.Limit)

	for _, p := range []string{"0", "1000001", "9223372036854775807"} {
		r = httptest.NewRequest(http.MethodGet, "/blog/post/?p="+p, nil)
		inst, err = c.New(context.Background(), Request{HTTP: r, User: user})
		require.NoError(t, err)
		_, err = inst.Dispatch()
		assert.ErrorIs(t, err, apperrors.ErrValidation, "p=%s", p)
	}
}

func TestRemovePermissions(t *testing.T) {
	m, _ := postModel()
	cfg := NewConfig("PostAdmin", ForModel(m), Set("remove_permissions", []string{"view"}))
	_, err := compose(List, cfg).New(context.Background(), Request{User: staff("blog.view_post")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateAndUpdate(t *testing.T) {
	m, mgr := postModel()
	cfg := NewConfig("PostAdmin", ForModel(m), Set("required_fields", []string{"title"}))
	user := staff("blog.add_post", "blog.change_post")

	bad := httptest.NewRequest(http.MethodPost, "/blog/post/add", strings.NewReader(`{"status":"draft"}`))
	bad.Header.Set("Content-Type", "application/json")
	inst, err := compose(Create, cfg).New(context.Background(), Request{HTTP: bad, User: user})
	require.NoError(t, err)
	out, err := inst.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, out.(Page).Status)

	good := httptest.NewRequest(http.MethodPost, "/blog/post/add", strings.NewReader(`{"title":"New","id":"99"}`))
	good.Header.Set("Content-Type", "application/json")
	inst, err = compose(Create, cfg).New(context.Background(), Request{HTTP: good, User: user})
	require.NoError(t, err)
	out, err = inst.Dispatch()
	require.NoError(t, err)
	page := out.(Page)
	assert.Equal(t, http.StatusCreated, page.Status)
	assert.Equal(t, "/blog_post_change/3", page.Context["redirect"])

	form := httptest.NewRequest(http.MethodPost, "/blog/post/1/update", strings.NewReader("title=Changed"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	inst, err = compose(Update, cfg).New(context.Background(), Request{HTTP: form, User: user, Params: map[string]string{"id": "1"}})
	require.NoError(t, err)
	_, err = inst.Dispatch()
	require.NoError(t, err)
	rec, err := mgr.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", rec["title"])

	_, err = compose(Update, cfg).New(context.Background(), Request{User: user, Params: map[string]string{"id": "404"}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteView(t *testing.T) {
	m, mgr := postModel()
	cfg := NewConfig("PostAdmin", ForModel(m))
	r := httptest.NewRequest(http.MethodPost, "/blog/post/2/delete", nil)
	inst, err := compose(Delete, cfg).New(context.Background(), Request{HTTP: r, User: staff("blog.delete_post"), Params: map[string]string{"id": "2"}})
	require.NoError(t, err)

	out, err := inst.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, true, out.(Page).Context["deleted"])
	assert.Equal(t, "", out.(Page).Context["redirect"], "no view permission, no changelist link")
	_, err = mgr.Get(context.Background(), "2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestModelViewWithoutModel(t *testing.T) {
	_, err := compose(Detail, nil).New(context.Background(), Request{User: staff()})
	assert.ErrorIs(t, err, apperrors.ErrImproperlyConfigured)
}
