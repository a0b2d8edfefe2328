package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/builtin"
	"github.com/leeforge/adminsite/config"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/runtime"
	"github.com/leeforge/adminsite/security"
	"github.com/leeforge/adminsite/site"
	"github.com/leeforge/adminsite/store"
	"github.com/leeforge/adminsite/view"
)

// app is a bootstrapped site and the runtime that owns its modules.
type app struct {
	cfg     *config.SiteConfig
	logger  logging.Logger
	site    *site.Site
	runtime *runtime.Runtime
}

// newApp builds the site described by cfg and loads every module into it.
func newApp(ctx context.Context, cfg *config.SiteConfig, logger logging.Logger) (*app, error) {
	users, err := policyUsers(cfg)
	if err != nil {
		return nil, err
	}

	s := site.New(cfg.Site.Title,
		site.WithPrefix(cfg.Site.Namespace),
		site.WithLogger(logger.Named("site")),
		site.WithServices(plugin.NewServiceRegistry()),
		site.WithResolver(auth.HeaderResolver(cfg.Site.UserHeader, users)),
		site.WithMiddleware(security.NewMiddleware(cfg.Security).Chain()),
	)

	rt := runtime.NewRuntime(runtime.Config{Site: s, Logger: logger.Named("runtime")})
	modules := []runtime.Module{
		&storeModule{cfg: cfg.Store, logger: logger},
		runtime.Func{ModuleName: "builtin", Fn: func(_ context.Context, s *site.Site) error {
			return builtin.Install(s)
		}},
		runtime.Func{ModuleName: "defaults", Requires: []string{"builtin"}, Fn: func(_ context.Context, s *site.Site) error {
			return registerDefaults(s, cfg.Site)
		}},
		runtime.Func{ModuleName: "blog", Requires: []string{"builtin", "store"}, Fn: registerBlog},
	}
	for _, m := range modules {
		if err := rt.Add(m); err != nil {
			return nil, err
		}
	}
	if err := rt.Bootstrap(ctx); err != nil {
		return nil, err
	}
	if err := rt.Failures(); err != nil {
		logger.Warn("site started without some modules", zap.Error(err))
	}
	return &app{cfg: cfg, logger: logger, site: s, runtime: rt}, nil
}

// policyUsers indexes the configured users, their permissions extended by
// the configured casbin policies and role assignments.
func policyUsers(cfg *config.SiteConfig) (map[string]auth.User, error) {
	authz, err := auth.NewAuthorizer()
	if err != nil {
		return nil, err
	}
	for _, p := range cfg.Policies {
		if err := authz.Grant(p.Subject, p.Object, p.Action); err != nil {
			return nil, fmt.Errorf("policy %s %s %s: %w", p.Subject, p.Object, p.Action, err)
		}
	}
	for _, r := range cfg.Roles {
		if err := authz.AssignRole(r.User, r.Role); err != nil {
			return nil, fmt.Errorf("role %s -> %s: %w", r.User, r.Role, err)
		}
	}
	users := cfg.UserTable()
	for name, u := range users {
		users[name] = authz.Wrap(u)
	}
	return users, nil
}

// registerDefaults binds the site wide settings: plugin exclusions to
// Template, the root of every view, and the default theme to Layout where
// the theme plugin is attached.
func registerDefaults(s *site.Site, cfg config.SiteSection) error {
	attrs := map[string]any{}
	if len(cfg.ExcludePlugins) > 0 {
		attrs[plugin.ExcludeAttr] = cfg.ExcludePlugins
	}
	if err := s.Register(view.Template, nil, attrs); err != nil {
		return err
	}
	layout := view.NewConfig("SiteLayout",
		view.PluginSettings("Theme", map[string]any{"default_theme": cfg.DefaultTheme}),
	)
	return s.Register(view.Layout, layout, nil)
}

// storeModule opens the per user settings store and publishes it as a
// site service.
type storeModule struct {
	cfg    store.Config
	logger logging.Logger
	st     store.Store
}

func (m *storeModule) Name() string           { return "store" }
func (m *storeModule) Dependencies() []string { return nil }

func (m *storeModule) Register(ctx context.Context, s *site.Site) error {
	st, err := store.Open(ctx, m.cfg)
	if err != nil {
		return err
	}
	if err := s.Services().Register(store.ServiceKey, st); err != nil {
		_ = st.Close()
		return err
	}
	m.st = st
	m.logger.Info("settings store opened", zap.String("driver", m.cfg.Driver))
	return nil
}

func (m *storeModule) Close(context.Context) error {
	if m.st == nil {
		return nil
	}
	return m.st.Close()
}
