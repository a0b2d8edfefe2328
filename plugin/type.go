package plugin

import (
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/leeforge/adminsite/errors"
)

var typeSeq atomic.Uint64

// Factory builds a plugin around its request binding.
type Factory func(b Base) Plugin

// Type describes a plugin that can be attached to view types. A Type is
// immutable once built; Specialize derives a new one.
type Type struct {
	id      uint64
	name    string
	factory Factory
	// fields holds the configurable fields with their defaults.
	fields map[string]any

	parent    *Type
	overrides map[string]any
}

// TypeOption configures a Type.
type TypeOption func(*Type)

// WithField declares a configurable field and its default.
func WithField(name string, def any) TypeOption {
	return func(t *Type) {
		t.fields[name] = def
	}
}

// WithFields declares several configurable fields.
func WithFields(fields map[string]any) TypeOption {
	return func(t *Type) {
		maps.Copy(t.fields, fields)
	}
}

// NewType declares a plugin type.
func NewType(name string, factory Factory, opts ...TypeOption) *Type {
	t := &Type{
		id:      typeSeq.Add(1),
		name:    name,
		factory: factory,
		fields:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Validate checks the type can be attached to a view.
func (t *Type) Validate() error {
	if t == nil {
		return errors.NewImproperlyConfigured("plugin type is nil")
	}
	if t.name == "" {
		return errors.NewImproperlyConfigured("plugin type has no name")
	}
	if t.factory == nil {
		return errors.NewImproperlyConfigured("plugin type %s has no factory", t.name)
	}
	return nil
}

func (t *Type) ID() uint64 { return t.id }

// Name is the type name. Specialized types carry the contributing config
// names as a prefix.
func (t *Type) Name() string { return t.name }

// PluginName is the name of the unspecialized plugin.
func (t *Type) PluginName() string {
	return t.Root().name
}

// Root returns the unspecialized type.
func (t *Type) Root() *Type {
	for t.parent != nil {
		t = t.parent
	}
	return t
}

func (t *Type) Parent() *Type { return t.parent }

// Fields returns the configurable field names, sorted.
func (t *Type) Fields() []string {
	return slices.Sorted(maps.Keys(t.Root().fields))
}

func (t *Type) HasField(name string) bool {
	_, ok := t.Root().fields[name]
	return ok
}

// Settings returns defaults overlaid by every specialization step.
func (t *Type) Settings() map[string]any {
	var chain []*Type
	for cur := t; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := maps.Clone(t.Root().fields)
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(out, chain[i].overrides)
	}
	return out
}

// Overrides returns the settings this type adds over its parent.
func (t *Type) Overrides() map[string]any {
	return maps.Clone(t.overrides)
}

// Specialize derives a type named prefix+name whose settings are overlaid
// with overrides. Empty overrides return t itself.
func (t *Type) Specialize(prefix []string, overrides map[string]any) *Type {
	if len(overrides) == 0 {
		return t
	}
	name := t.name
	if len(prefix) > 0 {
		name = strings.Join(prefix, "__") + "__" + t.name
	}
	return &Type{
		id:        typeSeq.Add(1),
		name:      name,
		factory:   t.factory,
		parent:    t,
		overrides: maps.Clone(overrides),
	}
}

// New instantiates the plugin for one request.
func (t *Type) New(host Host) Plugin {
	settings := NewPluginConfigEntry(t.PluginName(), true, t.Settings())
	return t.factory(NewBase(t.PluginName(), host, settings))
}

// Description returns the text of plugins implementing Describer, or "".
func (t *Type) Description() string {
	if d, ok := t.New(nil).(Describer); ok {
		return d.Description()
	}
	return ""
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}
