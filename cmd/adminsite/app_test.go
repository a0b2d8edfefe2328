package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/config"
	"github.com/leeforge/adminsite/json"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/permission"
	"github.com/leeforge/adminsite/runtime"
	"github.com/leeforge/adminsite/store"
)

func testConfig() *config.SiteConfig {
	return &config.SiteConfig{
		Site: config.SiteSection{
			Title:        "Demo",
			Namespace:    "admin",
			Addr:         ":0",
			UserHeader:   "X-Admin-User",
			DefaultTheme: "dark",
		},
		Store: store.Config{Driver: store.DriverMemory},
		Users: []auth.StaticUser{
			{UserID: "1", Name: "root", Active: true, Staff: true, Superuser: true},
			{UserID: "2", Name: "ed", Active: true, Staff: true},
		},
		Policies: []config.Policy{{Subject: "editor", Object: "blog.*", Action: "change"}},
		Roles:    []config.RoleAssignment{{User: "ed", Role: "editor"}},
	}
}

func testApp(t *testing.T, cfg *config.SiteConfig) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.runtime.Shutdown(context.Background()) })
	return a
}

func get(t *testing.T, h http.Handler, target, user string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != "" {
		req.Header.Set("X-Admin-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env.Data
}

func TestNewAppBootstrapsModules(t *testing.T) {
	a := testApp(t, testConfig())

	assert.True(t, a.site.Frozen())
	assert.Equal(t, []string{"builtin", "defaults", "store", "blog"}, a.runtime.BootOrder())
	for name, state := range a.runtime.States() {
		assert.Equal(t, runtime.StateLoaded, state, name)
	}
	assert.True(t, a.site.Services().Has(store.ServiceKey))
	assert.NoError(t, a.runtime.Failures())
}

func TestAppServesDemoModels(t *testing.T) {
	h := testApp(t, testConfig()).site.Handler()

	code, data := get(t, h, "/admin/blog/post/", "root")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, data["result_count"])
	assert.Equal(t, "dark", data["site_theme"])
	assert.Len(t, data["refresh_times"], 2)

	// ed only holds casbin policies; change implies view.
	code, _ = get(t, h, "/admin/blog/post/", "ed")
	require.Equal(t, http.StatusOK, code)

	code, data = get(t, h, "/admin/blog/comment/", "ed")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, data["result_count"])

	code, data = get(t, h, "/admin/blog/post/", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/admin/blog/post/", data["next"], "anonymous users get the login view")
}

func TestAppExcludePlugins(t *testing.T) {
	cfg := testConfig()
	cfg.Site.ExcludePlugins = []string{"ThemePlugin"}
	h := testApp(t, cfg).site.Handler()

	code, data := get(t, h, "/admin/", "root")
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, data, "site_theme")
}

func TestAppSecurityMiddleware(t *testing.T) {
	h := testApp(t, testConfig()).site.Handler()

	req := httptest.NewRequest(http.MethodPost, "/admin/blog/post/add", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("X-Admin-User", "root")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no origin")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestInspect(t *testing.T) {
	out, err := testApp(t, testConfig()).inspect()
	require.NoError(t, err)

	var snap permission.Snapshot
	require.NoError(t, json.Unmarshal(out, &snap))
	var codes []string
	for _, p := range snap.Permissions {
		codes = append(codes, p.Code)
	}
	assert.Contains(t, codes, "blog.view_post")
	assert.Contains(t, codes, "blog.delete_comment")

	var rep report
	require.NoError(t, json.Unmarshal(out, &rep))
	described := map[string]string{}
	for _, p := range rep.Plugins {
		described[p.Plugin] = p.Description
	}
	for _, name := range []string{"ThemePlugin", "AjaxPlugin", "RefreshPlugin", "ModelPermissionPlugin"} {
		assert.NotEmpty(t, described[name], name)
	}
}

func TestNewAppRejectsUnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "mongo"
	_, err := newApp(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
}

func TestWatchConfigReportsEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  title: Demo\n"), 0o644))

	core, logs := observer.New(zap.InfoLevel)
	w, err := watchConfig(config.Options{BasePath: dir, Mode: config.DevMode}, logging.FromZap(zap.New(core)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("site:\n  title: Renamed\n"), 0o644))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("config file changed, restart to apply").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("policies:\n  - subject: ed\n"), 0o644))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("config file changed and no longer validates").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)
}
