package view

import (
	"slices"
	"strings"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
)

// Site is what a composed view needs from the registry that built it.
type Site interface {
	Name() string
	Logger() logging.Logger
	Services() *plugin.ServiceRegistry
	// URL reverses a route name with positional path arguments.
	URL(name string, args ...string) (string, error)
	Menus(u auth.User) []*MenuItem
}

// MenuItem is one node of the navigation tree.
type MenuItem struct {
	Title    string      `json:"title"`
	URL      string      `json:"url,omitempty"`
	Icon     string      `json:"icon,omitempty"`
	Perm     string      `json:"perm,omitempty"`
	Order    int         `json:"order"`
	Children []*MenuItem `json:"children,omitempty"`
}

// Page is the value a view returns for the renderer.
type Page struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
	Status   int            `json:"-"`
}

// Levels expands rear and front into the resolution order of a composed
// view: the front config chain, then for each type of rear's resolution
// order the chain of its view config followed by the type itself.
func Levels(rear *Type, front *Config, viewConfig func(*Type) *Config) []Level {
	var levels []Level
	for _, c := range front.Chain() {
		levels = append(levels, c)
	}
	for _, t := range rear.mro {
		if viewConfig != nil {
			for _, c := range viewConfig(t).Chain() {
				levels = append(levels, c)
			}
		}
		levels = append(levels, t)
	}
	return levels
}

// Key identifies a level sequence.
func Key(levels []Level) string {
	ids := make([]string, len(levels))
	for i, l := range levels {
		ids[i] = l.LevelID()
	}
	return strings.Join(ids, ".")
}

// Composed is a view type synthesized from a base view, the configs that
// customize it and the plugins attached along its resolution order.
type Composed struct {
	name    string
	key     string
	rear    *Type
	front   *Config
	levels  []Level
	plugins []*plugin.Type
	site    Site
	hooked  map[string]bool
}

// NewComposed assembles a composed view. The site computes levels and
// plugin types.
func NewComposed(site Site, rear *Type, front *Config, levels []Level, plugins []*plugin.Type) *Composed {
	var b strings.Builder
	for _, l := range levels {
		if _, ok := l.(*Config); ok {
			b.WriteString(l.LevelName())
		}
	}
	b.WriteString(rear.name)

	hooked := make(map[string]bool)
	for _, l := range levels {
		t, ok := l.(*Type)
		if !ok {
			continue
		}
		for name, m := range t.methods {
			if m.Hook {
				hooked[name] = true
			}
		}
	}
	return &Composed{
		name:    b.String(),
		key:     Key(levels),
		rear:    rear,
		front:   front,
		levels:  levels,
		plugins: slices.Clone(plugins),
		site:    site,
		hooked:  hooked,
	}
}

func (c *Composed) Name() string   { return c.name }
func (c *Composed) Key() string    { return c.key }
func (c *Composed) Rear() *Type    { return c.rear }
func (c *Composed) Front() *Config { return c.front }
func (c *Composed) Site() Site     { return c.site }

func (c *Composed) Levels() []Level { return slices.Clone(c.levels) }

// PluginTypes lists the plugin types instantiated for every request.
func (c *Composed) PluginTypes() []*plugin.Type { return slices.Clone(c.plugins) }

// Hooked reports whether calls to name go through the plugin hook chain.
func (c *Composed) Hooked(name string) bool { return c.hooked[name] }

// Attr resolves name along the levels.
func (c *Composed) Attr(name string) (any, bool) {
	for _, l := range c.levels {
		if v, ok := l.ownAttr(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Model returns the model bound by the nearest config level.
func (c *Composed) Model() *model.Model {
	for _, l := range c.levels {
		if cfg, ok := l.(*Config); ok && cfg.model != nil {
			return cfg.model
		}
	}
	return nil
}

// HasMethod reports whether some level implements name.
func (c *Composed) HasMethod(name string) bool {
	_, _, ok := c.resolve(name, 0)
	return ok
}

// resolve finds the first level at or after from implementing name.
func (c *Composed) resolve(name string, from int) (int, Method, bool) {
	for i := from; i < len(c.levels); i++ {
		if m, ok := c.levels[i].ownMethod(name); ok {
			return i, m, true
		}
	}
	return -1, Method{}, false
}
