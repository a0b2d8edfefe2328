package plugin

import (
	"maps"
	"slices"

	"github.com/leeforge/adminsite/json"
)

// ConfigProvider gives plugins type-safe access to their merged settings.
type ConfigProvider interface {
	Name() string
	Get(key string) (any, bool)
	GetString(key string, defaultVal string) string
	GetInt(key string, defaultVal int) int
	GetBool(key string, defaultVal bool) bool
	GetStrings(key string) []string
	Keys() []string
	Bind(target any) error
	IsEnabled() bool
}

// PluginConfigEntry represents a single plugin's configuration entry.
type PluginConfigEntry struct {
	name     string
	enabled  bool
	settings map[string]any
}

// NewPluginConfigEntry creates a plugin config entry.
func NewPluginConfigEntry(name string, enabled bool, settings map[string]any) *PluginConfigEntry {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &PluginConfigEntry{name: name, enabled: enabled, settings: settings}
}

func (c *PluginConfigEntry) Name() string { return c.name }

func (c *PluginConfigEntry) Get(key string) (any, bool) {
	v, ok := c.settings[key]
	return v, ok
}

func (c *PluginConfigEntry) GetString(key string, defaultVal string) string {
	if s, ok := c.settings[key].(string); ok {
		return s
	}
	return defaultVal
}

func (c *PluginConfigEntry) GetInt(key string, defaultVal int) int {
	switch n := c.settings[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return defaultVal
	}
}

func (c *PluginConfigEntry) GetBool(key string, defaultVal bool) bool {
	if b, ok := c.settings[key].(bool); ok {
		return b
	}
	return defaultVal
}

func (c *PluginConfigEntry) GetStrings(key string) []string {
	switch v := c.settings[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (c *PluginConfigEntry) Keys() []string {
	return slices.Sorted(maps.Keys(c.settings))
}

// Bind decodes the settings into target through JSON.
func (c *PluginConfigEntry) Bind(target any) error {
	data, err := json.Marshal(c.settings)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (c *PluginConfigEntry) IsEnabled() bool {
	return c.enabled
}

// NewMapConfigProvider creates an enabled, unnamed provider. Used in tests.
func NewMapConfigProvider(settings map[string]any) *PluginConfigEntry {
	return NewPluginConfigEntry("", true, settings)
}

// emptyConfig is a ConfigProvider that returns defaults for everything.
type emptyConfig struct{}

func (e *emptyConfig) Name() string                        { return "" }
func (e *emptyConfig) Get(string) (any, bool)              { return nil, false }
func (e *emptyConfig) GetString(_ string, d string) string { return d }
func (e *emptyConfig) GetInt(_ string, d int) int          { return d }
func (e *emptyConfig) GetBool(_ string, d bool) bool       { return d }
func (e *emptyConfig) GetStrings(string) []string          { return nil }
func (e *emptyConfig) Keys() []string                      { return nil }
func (e *emptyConfig) Bind(any) error                      { return nil }
func (e *emptyConfig) IsEnabled() bool                     { return false }

// EmptyConfig returns a ConfigProvider that always returns defaults.
func EmptyConfig() ConfigProvider { return &emptyConfig{} }
