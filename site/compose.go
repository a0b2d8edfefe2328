package site

import (
	"maps"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/view"
)

// CreateViewClass returns the composed view of rear customized by front
// (nil for none). Equal level sequences yield the same *view.Composed.
func (s *Site) CreateViewClass(rear *view.Type, front *view.Config) *view.Composed {
	levels := view.Levels(rear, front, s.ViewConfig)
	key := view.Key(levels)
	if c, ok := s.composed.Load(key); ok {
		return c.(*view.Composed)
	}

	var fronts []*view.Config
	if front != nil {
		fronts = append(fronts, front)
	}
	c := view.NewComposed(s, rear, front, levels, s.PluginTypesFor(rear, fronts...))
	if !s.Frozen() {
		// Plugins may still be attached to these levels.
		return c
	}
	actual, loaded := s.composed.LoadOrStore(key, c)
	if !loaded {
		s.logger.Debug("view composed", logging.View(c.Name()), zap.Int("plugins", len(c.PluginTypes())))
	}
	return actual.(*view.Composed)
}

// PluginTypesFor lists the plugin types of rear, most derived view first.
// Plugins attached to a view are specialized by that view's config and
// by fronts.
func (s *Site) PluginTypesFor(rear *view.Type, fronts ...*view.Config) []*plugin.Type {
	var out []*plugin.Type
	for _, a := range rear.MRO() {
		if !a.Is(view.Template) {
			continue
		}
		var configs []*view.Config
		if vc := s.ViewConfig(a); vc != nil {
			configs = append(configs, vc)
		}
		for _, f := range fronts {
			if f != nil {
				configs = append(configs, f)
			}
		}
		for _, pt := range s.Plugins(a) {
			if len(configs) > 0 {
				pt = s.specialize(pt, configs)
			}
			out = append(out, pt)
		}
	}
	return out
}

// specialize overlays pt's defaults with nested per-plugin settings
// (later configs win) and then with config attrs naming plugin fields.
func (s *Site) specialize(pt *plugin.Type, configs []*view.Config) *plugin.Type {
	ids := make([]string, 0, len(configs)+1)
	names := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.LevelID())
		names = append(names, c.Name())
	}
	ids = append(ids, "p"+strconv.FormatUint(pt.ID(), 10))
	key := strings.Join(ids, ".")
	if cached, ok := s.specialized.Load(key); ok {
		return cached.(*plugin.Type)
	}

	overrides := make(map[string]any)
	for _, c := range configs {
		if nested, ok := c.SettingsFor(pt.PluginName()); ok {
			maps.Copy(overrides, nested)
		}
	}
	for _, c := range configs {
		for name, v := range c.Attrs() {
			if configurable(pt, name, v) {
				overrides[name] = v
			}
		}
	}

	actual, _ := s.specialized.LoadOrStore(key, pt.Specialize(names, overrides))
	return actual.(*plugin.Type)
}

// configurable reports whether a config attr sets a plugin field.
func configurable(pt *plugin.Type, name string, v any) bool {
	if strings.HasPrefix(name, "_") || !pt.HasField(name) {
		return false
	}
	return v == nil || reflect.TypeOf(v).Kind() != reflect.Func
}
