package hook

import "sort"

// Set indexes the hooks of the active plugins of one request by name.
// It is built once after activation filtering and is not safe for
// concurrent mutation.
type Set struct {
	byName map[string][]Func
}

func NewSet() *Set {
	return &Set{byName: make(map[string][]Func)}
}

// Add registers fns contributed by owner. Insertion order breaks priority ties.
func (s *Set) Add(owner string, fns ...Func) {
	touched := make(map[string]struct{}, len(fns))
	for _, f := range fns {
		if f.Owner == "" {
			f.Owner = owner
		}
		s.byName[f.Name] = append(s.byName[f.Name], f)
		touched[f.Name] = struct{}{}
	}
	for name := range touched {
		sortByPriority(s.byName[name])
	}
}

func (s *Set) Has(name string) bool {
	return len(s.byName[name]) > 0
}

// Funcs returns the sorted hooks for name.
func (s *Set) Funcs(name string) []Func {
	return append([]Func(nil), s.byName[name]...)
}

// Names lists hook names with at least one interceptor.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes core through the hooks registered for name. Without hooks
// core is called directly.
func (s *Set) Run(name string, core Next, args ...any) (any, error) {
	fns := s.byName[name]
	if len(fns) == 0 {
		return core()
	}
	return chain(fns, core, args)()
}
