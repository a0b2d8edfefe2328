package view

import (
	"maps"
	"strconv"
	"strings"

	"github.com/leeforge/adminsite/model"
)

// Config customizes a model or a view type: attribute overrides, method
// overrides and nested per-plugin settings. Deriving a config gives a child
// whose values shadow the parent's.
type Config struct {
	id      string
	name    string
	parent  *Config
	attrs   map[string]any
	methods map[string]Method
	plugins map[string]map[string]any
	model   *model.Model
}

// ConfigOption configures a Config under construction.
type ConfigOption func(*Config)

// Set assigns an attribute.
func Set(name string, value any) ConfigOption {
	return func(c *Config) {
		c.attrs[name] = value
	}
}

// SetAttrs assigns several attributes.
func SetAttrs(attrs map[string]any) ConfigOption {
	return func(c *Config) {
		maps.Copy(c.attrs, attrs)
	}
}

// Override replaces a method for views built with this config.
func Override(name string, fn Func) ConfigOption {
	return func(c *Config) {
		c.methods[name] = Method{Fn: fn}
	}
}

// PluginSettings sets nested settings for the plugin named plugin. The
// name may omit the "Plugin" suffix.
func PluginSettings(plugin string, settings map[string]any) ConfigOption {
	return func(c *Config) {
		c.plugins[plugin] = maps.Clone(settings)
	}
}

// ForModel binds the config to a model.
func ForModel(m *model.Model) ConfigOption {
	return func(c *Config) {
		c.model = m
	}
}

// NewConfig declares a root config.
func NewConfig(name string, opts ...ConfigOption) *Config {
	c := &Config{
		id:      "c" + strconv.FormatUint(levelSeq.Add(1), 10),
		name:    name,
		attrs:   make(map[string]any),
		methods: make(map[string]Method),
		plugins: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Derive returns a child config. A nil receiver derives a root config.
func (c *Config) Derive(name string, opts ...ConfigOption) *Config {
	child := NewConfig(name, opts...)
	child.parent = c
	return child
}

func (c *Config) LevelID() string   { return c.id }
func (c *Config) LevelName() string { return c.name }
func (c *Config) Name() string      { return c.name }
func (c *Config) String() string    { return c.name }
func (c *Config) Parent() *Config   { return c.parent }

// Chain returns c followed by its ancestors.
func (c *Config) Chain() []*Config {
	var out []*Config
	for cur := c; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

func (c *Config) ownMethod(name string) (Method, bool) {
	m, ok := c.methods[name]
	return m, ok
}

func (c *Config) ownAttr(name string) (any, bool) {
	v, ok := c.attrs[name]
	return v, ok
}

// Attr looks name up through the config chain.
func (c *Config) Attr(name string) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.attrs[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Attrs returns the attributes of the whole chain, children winning.
func (c *Config) Attrs() map[string]any {
	chain := c.Chain()
	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(out, chain[i].attrs)
	}
	return out
}

// Model returns the bound model of the nearest config in the chain.
func (c *Config) Model() *model.Model {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.model != nil {
			return cur.model
		}
	}
	return nil
}

// SettingsFor returns the nested settings for plugin across the chain,
// looked up by exact name or with the "Plugin" suffix stripped.
func (c *Config) SettingsFor(plugin string) (map[string]any, bool) {
	short := strings.TrimSuffix(plugin, "Plugin")
	chain := c.Chain()
	out := make(map[string]any)
	found := false
	for i := len(chain) - 1; i >= 0; i-- {
		for _, key := range []string{short, plugin} {
			if s, ok := chain[i].plugins[key]; ok {
				maps.Copy(out, s)
				found = true
			}
		}
	}
	return out, found
}
