package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/json"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/site"
	"github.com/leeforge/adminsite/store"
	"github.com/leeforge/adminsite/view"
)

var (
	root   = &auth.StaticUser{UserID: "1", Name: "root", Active: true, Staff: true, Superuser: true}
	editor = &auth.StaticUser{UserID: "7", Name: "editor", Active: true, Staff: true,
		Perms: []string{"blog.view_post", "blog.add_post", "blog.change_post"}}
)

type envelope struct {
	Data map[string]any `json:"data"`
	Meta struct {
		Template string `json:"template"`
	} `json:"meta"`
}

func newSite(t *testing.T, attrs map[string]any) (*site.Site, *model.Model, store.Store) {
	t.Helper()
	settings := store.NewMemory()
	services := plugin.NewServiceRegistry()
	services.MustRegister(store.ServiceKey, store.Store(settings))

	s := site.New("admin", site.WithServices(services), site.WithResolver(auth.HeaderResolver("X-User", map[string]auth.User{
		"root":   root,
		"editor": editor,
	})))
	require.NoError(t, Install(s))

	post := model.New("blog", "post", model.NewMemoryManager("post",
		model.Record{"title": "mine", "user": "7"},
		model.Record{"title": "theirs", "user": "8"},
	))
	require.NoError(t, s.Register(post, nil, attrs))
	return s, post, settings
}

func request(t *testing.T, h http.Handler, method, target, user string, body string, header map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-User", user)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestInstall(t *testing.T) {
	s, post, _ := newSite(t, nil)
	assert.Same(t, view.Login, s.LoginView())
	assert.Len(t, s.ModelViews(), len(ModelRoutes))
	assert.Len(t, s.URLViews(), len(URLRoutes))

	u, err := s.ModelURL(post, "delete", "3")
	require.NoError(t, err)
	assert.Equal(t, "/blog/post/3/delete", u)

	var names []string
	for _, pt := range s.PluginTypesFor(view.List) {
		names = append(names, pt.Name())
	}
	assert.Equal(t, []string{"RefreshPlugin", "ModelPermissionPlugin", "ThemePlugin", "AjaxPlugin"}, names)
}

func TestAjax(t *testing.T) {
	s, _, _ := newSite(t, map[string]any{"required_fields": []string{"title"}})
	h := s.Handler()
	ajaxHeader := map[string]string{"X-Requested-With": "XMLHttpRequest"}

	code, env := request(t, h, http.MethodGet, "/blog/post/", "root", "", ajaxHeader)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env.Meta.Template, "ajax answers with data only")
	assert.EqualValues(t, 2, env.Data["result_count"])

	code, env = request(t, h, http.MethodGet, "/blog/post/?_ajax=1", "root", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env.Meta.Template)

	code, env = request(t, h, http.MethodPost, "/blog/post/add", "root", `{"body":"x"}`, ajaxHeader)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", env.Data["result"])
	assert.Contains(t, env.Data["errors"], "title")

	code, env = request(t, h, http.MethodPost, "/blog/post/add", "root", `{"title":"new"}`, ajaxHeader)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "success", env.Data["result"])
	assert.Equal(t, "/blog/post/3/update", env.Data["redirect"])

	code, env = request(t, h, http.MethodGet, "/blog/post/", "root", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin/model_list.html", env.Meta.Template, "plain requests get pages")
}

func TestTheme(t *testing.T) {
	s, _, settings := newSite(t, nil)
	h := s.Handler()

	_, env := request(t, h, http.MethodGet, "/", "root", "", nil)
	assert.Equal(t, "default", env.Data["site_theme"])
	assert.Contains(t, env.Data["media"], "admin/js/themes.js")

	_, env = request(t, h, http.MethodGet, "/?_theme=dark", "root", "", nil)
	assert.Equal(t, "dark", env.Data["site_theme"])
	v, ok, err := settings.Get(context.Background(), "root", ThemeKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	_, env = request(t, h, http.MethodGet, "/", "root", "", nil)
	assert.Equal(t, "dark", env.Data["site_theme"], "stored theme wins")

	_, env = request(t, h, http.MethodGet, "/?_theme=neon", "editor", "", nil)
	assert.Equal(t, "default", env.Data["site_theme"], "unknown themes are ignored")

	_, env = request(t, h, http.MethodGet, "/", "editor", "", map[string]string{"Cookie": "_theme=dark"})
	assert.Equal(t, "dark", env.Data["site_theme"], "cookie theme")

	_, env = request(t, h, http.MethodGet, "/", "editor", "", map[string]string{"Cookie": "_theme=neon"})
	assert.Equal(t, "default", env.Data["site_theme"], "unknown cookie themes are ignored")
}

func TestThemeDisabled(t *testing.T) {
	s, post, _ := newSite(t, map[string]any{"enable_themes": false})
	out, err := s.Serve(context.Background(), view.Request{User: root}, view.List, s.ModelConfig(post))
	require.NoError(t, err)
	page := out.(view.Page)
	assert.NotContains(t, page.Context, "site_theme")
}

func TestRefresh(t *testing.T) {
	s, _, _ := newSite(t, nil)
	h := s.Handler()
	_, env := request(t, h, http.MethodGet, "/blog/post/", "root", "", nil)
	assert.NotContains(t, env.Data, "refresh_times", "inactive without refresh_times")

	s, _, _ = newSite(t, map[string]any{"refresh_times": []int{5, 30}})
	h = s.Handler()
	_, env = request(t, h, http.MethodGet, "/blog/post/?_refresh=30&q=x", "root", "", nil)
	assert.Equal(t, true, env.Data["has_refresh"])
	assert.Equal(t, "30", env.Data["current_refresh"])
	assert.Equal(t, "?q=x", env.Data["clean_refresh_url"])
	assert.Contains(t, env.Data["media"], "admin/js/refresh.js")

	options, ok := env.Data["refresh_times"].([]any)
	require.True(t, ok)
	require.Len(t, options, 2)
	first := options[0].(map[string]any)
	assert.EqualValues(t, 5, first["time"])
	assert.Equal(t, "?_refresh=5&q=x", first["url"])
	assert.Equal(t, false, first["selected"])
	assert.Equal(t, true, options[1].(map[string]any)["selected"])
}

func TestModelPermissionOwnedOnly(t *testing.T) {
	s, _, _ := newSite(t, nil)
	require.NoError(t, s.Unregister(s.ModelConfigs()[0].Model()))

	post := model.New("blog", "post", model.NewMemoryManager("post",
		model.Record{"title": "mine", "user": "7"},
		model.Record{"title": "theirs", "user": "8"},
	))
	require.NoError(t, s.Register(post, view.NewConfig("PostAdmin",
		view.PluginSettings("ModelPermission", map[string]any{"user_can_access_owned_objects_only": true}),
	), nil))
	h := s.Handler()

	_, env := request(t, h, http.MethodGet, "/blog/post/", "editor", "", nil)
	assert.EqualValues(t, 1, env.Data["result_count"])
	assert.Equal(t, true, env.Data["owned_only"])
	perms := env.Data["perms"].(map[string]any)
	assert.Equal(t, true, perms["change"])
	assert.Equal(t, false, perms["delete"])

	code, _ := request(t, h, http.MethodGet, "/blog/post/2", "editor", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = request(t, h, http.MethodGet, "/blog/post/1", "editor", "", nil)
	assert.Equal(t, http.StatusOK, code)

	_, env = request(t, h, http.MethodGet, "/blog/post/", "root", "", nil)
	assert.EqualValues(t, 2, env.Data["result_count"], "superusers see everything")
}

func TestQueryString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?b=2&a=1", nil)
	assert.Equal(t, "?a=1&b=2&z=9", queryString(r, "z", "9"))
	assert.Equal(t, "?b=2", queryString(r, "a", ""))
	assert.Equal(t, "?k=v", queryString(nil, "k", "v"))
	assert.Empty(t, queryString(nil, "k", ""))
}
