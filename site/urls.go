package site

import (
	"strings"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/model"
)

// ModelRouteName is the reverse name of a model view: "<app>_<model>_<name>".
func ModelRouteName(m *model.Model, name string) string {
	return m.AppLabel + "_" + m.Name + "_" + name
}

// modelBase is the pattern every model view of m is mounted under.
func modelBase(m *model.Model) string {
	return "/" + m.AppLabel + "/" + m.Name
}

// URL reverses a route name. Path parameters are filled from args in order.
func (s *Site) URL(name string, args ...string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.urlViews {
		if r.Name == name {
			return fill(s.prefix+r.Pattern, args)
		}
	}
	for _, m := range s.modelOrder {
		for _, r := range s.modelViews {
			if ModelRouteName(m, r.Name) == name {
				return fill(s.prefix+modelBase(m)+r.Pattern, args)
			}
		}
	}
	return "", errors.NewNotFound("route", name)
}

// ModelURL reverses the model view called name for m.
func (s *Site) ModelURL(m *model.Model, name string, args ...string) (string, error) {
	return s.URL(ModelRouteName(m, name), args...)
}

// fill replaces each {param} (regexp suffix allowed) with the next arg.
func fill(pattern string, args []string) (string, error) {
	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", errors.NewImproperlyConfigured("unbalanced pattern %q", pattern)
		}
		if len(args) == 0 {
			return "", errors.NewImproperlyConfigured("pattern %q needs more arguments", pattern)
		}
		b.WriteString(rest[:open])
		b.WriteString(args[0])
		args = args[1:]
		rest = rest[open+end+1:]
	}
	if len(args) > 0 {
		return "", errors.NewImproperlyConfigured("pattern %q takes fewer arguments", pattern)
	}
	return b.String(), nil
}
