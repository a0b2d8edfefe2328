package plugin

import (
	"context"
	"slices"

	"github.com/leeforge/adminsite/hook"
)

// ExcludeAttr lists plugin names a view config switches off.
const ExcludeAttr = "exclude_plugins"

// Base carries the request binding shared by all plugins. Embed it and
// override what the plugin needs.
type Base struct {
	name     string
	host     Host
	settings ConfigProvider
}

// NewBase binds a plugin named name to host.
func NewBase(name string, host Host, settings ConfigProvider) Base {
	if settings == nil {
		settings = EmptyConfig()
	}
	return Base{name: name, host: host, settings: settings}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Host() Host { return b.host }

func (b *Base) Settings() ConfigProvider { return b.settings }

// InitRequest keeps the plugin unless the view excludes it by name.
func (b *Base) InitRequest(context.Context, ...any) (bool, error) {
	return !b.Excluded(), nil
}

// Excluded reports whether the host lists this plugin in exclude_plugins.
func (b *Base) Excluded() bool {
	if b.host == nil {
		return false
	}
	return slices.Contains(AttrStrings(b.host, ExcludeAttr), b.name)
}

func (b *Base) Hooks() []hook.Func { return nil }

// AttrStrings reads a string list attribute from host.
func AttrStrings(host Host, name string) []string {
	v, ok := host.Attr(name)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}
