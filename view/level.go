// Package view declares admin view types, per-model configs and the
// composed views built from them, and runs one request through a composed
// view with its plugins.
//
// A composed view is an explicit list of levels. Method and attribute
// lookup walks the list front to back, so earlier levels shadow later ones.
package view

import (
	"maps"
	"slices"
	"strconv"
	"sync/atomic"
)

var levelSeq atomic.Uint64

// Func implements a view method. f identifies the level the implementation
// belongs to so it can reach the next one with f.Super.
type Func func(f *Frame, args ...any) (any, error)

// Method is one entry of a level's method table.
type Method struct {
	Fn Func
	// Hook routes calls through the plugin hook chain.
	Hook bool
}

// Level is one entry of a composed view's resolution order. It is
// implemented by *Type and *Config.
type Level interface {
	LevelID() string
	LevelName() string
	ownMethod(name string) (Method, bool)
	ownAttr(name string) (any, bool)
}

// Type is a view type. Types are declared at load time and never change.
type Type struct {
	id      string
	name    string
	parents []*Type
	mro     []*Type
	attrs   map[string]any
	methods map[string]Method
}

// TypeOption configures a Type under construction.
type TypeOption func(*Type)

// Extends declares the parent types, most specific first.
func Extends(parents ...*Type) TypeOption {
	return func(t *Type) {
		t.parents = append(t.parents, parents...)
	}
}

// WithAttr sets an attribute default.
func WithAttr(name string, value any) TypeOption {
	return func(t *Type) {
		t.attrs[name] = value
	}
}

// WithAttrs sets several attribute defaults.
func WithAttrs(attrs map[string]any) TypeOption {
	return func(t *Type) {
		maps.Copy(t.attrs, attrs)
	}
}

// WithMethod defines a method that plugins cannot intercept.
func WithMethod(name string, fn Func) TypeOption {
	return func(t *Type) {
		t.methods[name] = Method{Fn: fn}
	}
}

// WithHook defines a method that runs through the plugin hook chain.
func WithHook(name string, fn Func) TypeOption {
	return func(t *Type) {
		t.methods[name] = Method{Fn: fn, Hook: true}
	}
}

// NewType declares a view type.
func NewType(name string, opts ...TypeOption) *Type {
	t := &Type{
		id:      "v" + strconv.FormatUint(levelSeq.Add(1), 10),
		name:    name,
		attrs:   make(map[string]any),
		methods: make(map[string]Method),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.mro = linearize(t)
	return t
}

// linearize returns t followed by its parents' resolution orders
// concatenated, keeping the last occurrence of a repeated type so shared
// bases come after everything that extends them.
func linearize(t *Type) []*Type {
	var all []*Type
	for _, p := range t.parents {
		all = append(all, p.mro...)
	}
	last := make(map[*Type]int, len(all))
	for i, a := range all {
		last[a] = i
	}
	out := []*Type{t}
	for i, a := range all {
		if last[a] == i && a != t {
			out = append(out, a)
		}
	}
	return out
}

func (t *Type) LevelID() string   { return t.id }
func (t *Type) LevelName() string { return t.name }
func (t *Type) Name() string      { return t.name }
func (t *Type) String() string    { return t.name }

// MRO returns t and its ancestors, most derived first.
func (t *Type) MRO() []*Type {
	return slices.Clone(t.mro)
}

// Is reports whether ancestor is t or one of its ancestors.
func (t *Type) Is(ancestor *Type) bool {
	return slices.Contains(t.mro, ancestor)
}

func (t *Type) ownMethod(name string) (Method, bool) {
	m, ok := t.methods[name]
	return m, ok
}

func (t *Type) ownAttr(name string) (any, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// Attr looks name up along the resolution order.
func (t *Type) Attr(name string) (any, bool) {
	for _, a := range t.mro {
		if v, ok := a.attrs[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// HasMethod reports whether any level of the type defines name.
func (t *Type) HasMethod(name string) bool {
	for _, a := range t.mro {
		if _, ok := a.methods[name]; ok {
			return true
		}
	}
	return false
}
