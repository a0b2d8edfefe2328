package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":            DevMode,
		"dev":         DevMode,
		" PROD ":      ProMode,
		"production":  ProMode,
		"testing":     TestMode,
		"staging-ish": DevMode,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseMode(in), in)
	}
}

func TestLoadSiteStacksFilesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
site:
  title: Blog admin
  namespace: blog
store:
  driver: bolt
  bolt:
    path: /tmp/blog.db
users:
  - username: ed
    active: true
    staff: true
    perms: [blog.view_post]
policies:
  - subject: editor
    object: blog.*
    action: change
roles:
  - user: ed
    role: editor
`)
	writeFile(t, dir, "config.test.yaml", `
site:
  addr: ":9999"
logging:
  level: debug
`)
	writeFile(t, dir, "config.production.yaml", `
site:
  addr: ":80"
`)

	site, cfg, err := LoadSite(Options{BasePath: dir, Mode: TestMode})
	require.NoError(t, err)

	assert.Len(t, cfg.Files(), 2)
	assert.Equal(t, "Blog admin", site.Site.Title)
	assert.Equal(t, "blog", site.Site.Namespace)
	assert.Equal(t, ":9999", site.Site.Addr)
	assert.Equal(t, "X-Admin-User", site.Site.UserHeader, "default applied")
	assert.Equal(t, "debug", site.Logging.Level)
	assert.Equal(t, "json", site.Logging.Format)
	assert.Equal(t, "bolt", site.Store.Driver)
	assert.Equal(t, "/tmp/blog.db", site.Store.Bolt.Path)
	assert.Equal(t, "6379", site.Store.Redis.Port)
	assert.False(t, site.Security.DisableCSRF)
	assert.Equal(t, int64(1<<20), site.Security.RequestSize)

	require.Len(t, site.Users, 1)
	users := site.UserTable()
	require.Contains(t, users, "ed")
	assert.True(t, users["ed"].HasPerm("blog.view_post"))
	assert.Equal(t, "editor", site.Policies[0].Subject)
	assert.Equal(t, "editor", site.Roles[0].Role)
}

func TestEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "site:\n  title: From file\n")
	t.Setenv("ADMINSITE_SITE_TITLE", "From env")

	site, _, err := LoadSite(Options{BasePath: dir, EnvPrefix: "ADMINSITE", Mode: DevMode})
	require.NoError(t, err)
	assert.Equal(t, "From env", site.Site.Title)
}

func TestLoadSiteWithoutFiles(t *testing.T) {
	site, cfg, err := LoadSite(Options{BasePath: t.TempDir(), Mode: DevMode})
	require.NoError(t, err)
	assert.Empty(t, cfg.Files())
	assert.Equal(t, "admin", site.Site.Namespace)
	assert.Equal(t, "memory", site.Store.Driver)
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "store:\n  driver: etcd\n")
	_, _, err := LoadSite(Options{BasePath: dir, Mode: DevMode})
	require.Error(t, err)

	writeFile(t, dir, "config.yaml", "policies:\n  - subject: ed\n")
	_, _, err = LoadSite(Options{BasePath: dir, Mode: DevMode})
	require.Error(t, err)
}

func TestGetSet(t *testing.T) {
	cfg, err := New(Options{BasePath: t.TempDir(), Mode: DevMode})
	require.NoError(t, err)
	cfg.Set("site.title", "x")
	assert.Equal(t, "x", cfg.Get("site.title"))
}

func TestWatchRebindsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "site:\n  title: Before\n")

	var site SiteConfig
	titles := make(chan string, 16)
	cfg, err := New(Options{
		BasePath: dir,
		Mode:     DevMode,
		Watch:    true,
		OnChange: func(fsnotify.Event) {
			select {
			case titles <- site.Site.Title:
			default:
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	require.NoError(t, cfg.Bind(&site))
	assert.Equal(t, "Before", site.Site.Title)

	writeFile(t, dir, "config.yaml", "site:\n  title: After\n")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case title := <-titles:
			if title == "After" {
				assert.Equal(t, "After", cfg.Get("site.title"))
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestCloseWithoutWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "site:\n  title: Static\n")
	cfg, err := New(Options{BasePath: dir, Mode: DevMode})
	require.NoError(t, err)

	var site SiteConfig
	require.NoError(t, cfg.Bind(&site))
	assert.NoError(t, cfg.Close())
}
