package builtin

import (
	"context"
	"net/url"
	"slices"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/store"
)

const (
	// ThemeParam selects and stores a theme for the current user.
	ThemeParam = "_theme"
	// ThemeKey is the store key of the chosen theme.
	ThemeKey = "theme"
)

// Theme puts the user's theme into every page context. The theme comes
// from the settings store, then the _theme cookie, then default_theme.
var Theme = plugin.NewType("ThemePlugin", func(b plugin.Base) plugin.Plugin {
	return &theme{Base: b}
}, plugin.WithFields(map[string]any{
	"enable_themes": true,
	"default_theme": "default",
	"themes":        []string{"default", "dark"},
}))

type theme struct {
	plugin.Base
	store store.Store
}

func (p *theme) Description() string {
	return "selects the page theme from the settings store, the _theme cookie or default_theme"
}

func (p *theme) InitRequest(ctx context.Context, args ...any) (bool, error) {
	if !p.Settings().GetBool("enable_themes", false) {
		return false, nil
	}
	if services := p.Host().Services(); services != nil {
		p.store, _ = plugin.Resolve[store.Store](services, store.ServiceKey)
	}
	return p.Base.InitRequest(ctx, args...)
}

func (p *theme) Hooks() []hook.Func {
	return []hook.Func{
		hook.After[map[string]any]("get_context", func(ctx map[string]any, _ ...any) (map[string]any, error) {
			ctx["site_theme"] = p.current()
			ctx["themes"] = p.Settings().GetStrings("themes")
			return ctx, nil
		}),
		hook.After[[]string]("get_media", func(media []string, _ ...any) ([]string, error) {
			return append(media, "admin/js/themes.js"), nil
		}),
	}
}

func (p *theme) current() string {
	host := p.Host()
	ctx := context.Background()
	if r := host.Request(); r != nil {
		ctx = r.Context()
	}
	user := host.User()
	known := p.Settings().GetStrings("themes")

	if r := host.Request(); r != nil {
		if chosen := r.URL.Query().Get(ThemeParam); chosen != "" && slices.Contains(known, chosen) {
			if p.store != nil && user.IsActive() {
				if err := p.store.Set(ctx, user.Username(), ThemeKey, chosen); err != nil {
					host.Logger().Warn("theme not saved", zap.Error(err))
				}
			}
			return chosen
		}
	}

	if p.store != nil && user.IsActive() {
		v, ok, err := p.store.Get(ctx, user.Username(), ThemeKey)
		if err != nil {
			host.Logger().Warn("theme lookup failed", zap.Error(err))
		} else if ok {
			return v
		}
	}

	if r := host.Request(); r != nil {
		if c, err := r.Cookie(ThemeParam); err == nil {
			if v, err := url.QueryUnescape(c.Value); err == nil && slices.Contains(known, v) {
				return v
			}
		}
	}
	return p.Settings().GetString("default_theme", "default")
}
