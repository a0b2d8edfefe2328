// Package hook runs plugin interceptors around a core method.
//
// Every interceptor declares its kind up front. A Before hook receives the
// not yet invoked inner call and decides whether and when to run it. An After
// hook receives the inner result and may replace it. An Observer hook only
// watches: its inner call must produce an empty result.
//
// Interceptors are ordered by priority, lowest first, and the lowest priority
// becomes the outermost wrapper.
package hook

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/leeforge/adminsite/errors"
)

// DefaultPriority is used when a hook does not set one.
const DefaultPriority = 10

// Kind selects the calling convention of a hook.
type Kind int

const (
	KindBefore Kind = iota
	KindAfter
	KindObserver
)

func (k Kind) String() string {
	switch k {
	case KindBefore:
		return "before"
	case KindAfter:
		return "after"
	case KindObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// Next invokes the rest of the chain.
type Next func() (any, error)

// Func is one interceptor bound to a hook name.
type Func struct {
	Name     string
	Priority int
	Kind     Kind
	// Owner names the plugin that contributed the hook.
	Owner string

	call func(f *Func, next Next, args []any) (any, error)
}

// Option customizes a Func.
type Option func(*Func)

// WithPriority overrides DefaultPriority.
func WithPriority(p int) Option {
	return func(f *Func) {
		f.Priority = p
	}
}

// WithOwner sets the owner reported in errors.
func WithOwner(owner string) Option {
	return func(f *Func) {
		f.Owner = owner
	}
}

func newFunc(name string, kind Kind, opts []Option) Func {
	f := Func{Name: name, Priority: DefaultPriority, Kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Before builds a hook that receives the continuation. Not calling next
// short-circuits the rest of the chain.
func Before[T any](name string, fn func(next func() (T, error), args ...any) (T, error), opts ...Option) Func {
	f := newFunc(name, KindBefore, opts)
	f.call = func(self *Func, next Next, args []any) (any, error) {
		typed := func() (T, error) {
			v, err := next()
			if err != nil {
				var zero T
				return zero, err
			}
			return cast[T](self, v)
		}
		return fn(typed, args...)
	}
	return f
}

// After builds a hook that receives the inner result.
func After[T any](name string, fn func(result T, args ...any) (T, error), opts ...Option) Func {
	f := newFunc(name, KindAfter, opts)
	f.call = func(self *Func, next Next, args []any) (any, error) {
		v, err := next()
		if err != nil {
			return nil, err
		}
		result, err := cast[T](self, v)
		if err != nil {
			return nil, err
		}
		return fn(result, args...)
	}
	return f
}

// Observer builds a hook that runs after the inner call. The inner result
// must be empty, otherwise the chain fails with errors.ErrIncorrectPluginArg.
func Observer(name string, fn func(args ...any) error, opts ...Option) Func {
	f := newFunc(name, KindObserver, opts)
	f.call = func(self *Func, next Next, args []any) (any, error) {
		v, err := next()
		if err != nil {
			return nil, err
		}
		if !IsEmpty(v) {
			return nil, errors.NewIncorrectPluginArg(self.Name, self.Owner,
				fmt.Sprintf("observer hook wraps non-empty result %T", v))
		}
		return v, fn(args...)
	}
	return f
}

func cast[T any](f *Func, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.NewIncorrectPluginArg(f.Name, f.Owner,
			fmt.Sprintf("expected %T result, got %T", zero, v))
	}
	return t, nil
}

// IsEmpty reports whether v is nil, a zero value or an empty collection.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}

// Run executes core wrapped by every fn registered for name. fns may hold
// hooks for other names; they are ignored.
func Run(name string, fns []Func, core Next, args ...any) (any, error) {
	matched := make([]Func, 0, len(fns))
	for _, f := range fns {
		if f.Name == name {
			matched = append(matched, f)
		}
	}
	sortByPriority(matched)
	return chain(matched, core, args)()
}

func sortByPriority(fns []Func) {
	sort.SliceStable(fns, func(i, j int) bool {
		return fns[i].Priority < fns[j].Priority
	})
}

// chain folds fns around core from the inside out. fns must be sorted.
func chain(fns []Func, core Next, args []any) Next {
	next := once(core)
	for i := len(fns) - 1; i >= 0; i-- {
		f := fns[i]
		inner := next
		next = once(func() (any, error) {
			if f.call == nil {
				return nil, errors.NewIncorrectPluginArg(f.Name, f.Owner, "hook has no handler")
			}
			return f.call(&f, inner, args)
		})
	}
	return next
}

// once keeps a link from running twice when a Before hook calls next again.
func once(fn Next) Next {
	var (
		o   sync.Once
		v   any
		err error
	)
	return func() (any, error) {
		o.Do(func() {
			v, err = fn()
		})
		return v, err
	}
}
