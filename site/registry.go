package site

import (
	"cmp"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/view"
)

// Route mounts a view type at a pattern. Model view patterns are relative
// to "/{app}/{model}".
type Route struct {
	Pattern string
	View    *view.Type
	Name    string
}

// Register binds a config to a model (or a list of models) or to a view
// type. The stored config derives from cfg with attrs applied; cfg may be
// nil. Models get an "order" attr in registration order unless the
// config chain sets one.
func (s *Site) Register(target any, cfg *view.Config, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}

	switch t := target.(type) {
	case *model.Model:
		return s.registerModel(t, cfg, attrs)
	case []*model.Model:
		for _, m := range t {
			if err := s.registerModel(m, cfg, attrs); err != nil {
				return err
			}
		}
		return nil
	case *view.Type:
		if t == nil {
			return errors.NewTypeErrorRegistered(target)
		}
		if _, ok := s.views[t]; ok {
			return errors.NewAlreadyRegistered(t.Name())
		}
		s.views[t] = cfg.Derive(t.Name()+"Config", view.SetAttrs(attrs))
		s.logger.Debug("view config registered", logging.View(t.Name()))
		return nil
	}
	return errors.NewTypeErrorRegistered(target)
}

func (s *Site) registerModel(m *model.Model, cfg *view.Config, attrs map[string]any) error {
	if m == nil {
		return errors.NewTypeErrorRegistered(m)
	}
	if m.Abstract {
		return errors.NewImproperlyConfigured("model %s is abstract and cannot be registered", m.Label())
	}
	if _, ok := s.models[m]; ok {
		return errors.NewAlreadyRegistered(m.Label())
	}
	opts := []view.ConfigOption{view.SetAttrs(attrs), view.ForModel(m)}
	_, inChain := cfg.Attr("order")
	_, inAttrs := attrs["order"]
	if !inChain && !inAttrs {
		s.nextOrder++
		opts = append(opts, view.Set("order", s.nextOrder))
	}
	s.models[m] = cfg.Derive(m.AppLabel+m.Name+"View", opts...)
	s.modelOrder = append(s.modelOrder, m)
	s.logger.Debug("model registered", zap.String("model", m.Label()))
	return nil
}

// Unregister removes a model or view type binding.
func (s *Site) Unregister(target any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}

	switch t := target.(type) {
	case *model.Model:
		if t == nil {
			return errors.NewTypeErrorRegistered(target)
		}
		if _, ok := s.models[t]; !ok {
			return errors.NewNotRegistered(t.Label())
		}
		delete(s.models, t)
		s.modelOrder = slices.DeleteFunc(s.modelOrder, func(m *model.Model) bool { return m == t })
		return nil
	case *view.Type:
		if t == nil {
			return errors.NewTypeErrorRegistered(target)
		}
		if _, ok := s.views[t]; !ok {
			return errors.NewNotRegistered(t.Name())
		}
		delete(s.views, t)
		return nil
	}
	return errors.NewTypeErrorRegistered(target)
}

// AddPlugin attaches pt to vt and every view extending it.
func (s *Site) AddPlugin(pt *plugin.Type, vt *view.Type) error {
	if err := pt.Validate(); err != nil {
		return err
	}
	if vt == nil {
		return errors.NewImproperlyConfigured("plugin %s attached to nil view", pt.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.plugins[vt] = append(s.plugins[vt], pt)
	s.logger.Debug("plugin attached", logging.Plugin(pt.Name()), zap.String("target", vt.Name()))
	return nil
}

// AddModelView mounts vt under every registered model.
func (s *Site) AddModelView(pattern string, vt *view.Type, name string) error {
	if vt == nil || !vt.Is(view.Template) {
		return errors.NewImproperlyConfigured("model view %q must extend %s", name, view.Template.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.modelViews = append(s.modelViews, Route{Pattern: pattern, View: vt, Name: name})
	return nil
}

// AddURLView mounts vt at pattern. update puts the route first so it wins
// over earlier routes with the same pattern.
func (s *Site) AddURLView(pattern string, vt *view.Type, name string, update bool) error {
	if vt == nil || !vt.Is(view.Template) {
		return errors.NewImproperlyConfigured("url view %q must extend %s", name, view.Template.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	r := Route{Pattern: pattern, View: vt, Name: name}
	if update {
		s.urlViews = slices.Insert(s.urlViews, 0, r)
	} else {
		s.urlViews = append(s.urlViews, r)
	}
	return nil
}

// SetLoginView sets the view shown to users failing HasPermission.
func (s *Site) SetLoginView(vt *view.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.loginView = vt
	return nil
}

func (s *Site) LoginView() *view.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loginView
}

// ModelConfig returns the config registered for m, or nil.
func (s *Site) ModelConfig(m *model.Model) *view.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[m]
}

// ViewConfig returns the config registered for exactly vt, or nil.
func (s *Site) ViewConfig(vt *view.Type) *view.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views[vt]
}

// Plugins returns the plugin types attached directly to vt.
func (s *Site) Plugins(vt *view.Type) []*plugin.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.plugins[vt])
}

// AttachedViews returns the view types carrying plugins, sorted by name.
func (s *Site) AttachedViews() []*view.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Keys(s.plugins))
	slices.SortFunc(out, func(a, b *view.Type) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return out
}

// ModelConfigs returns model configs in registration order.
func (s *Site) ModelConfigs() []*view.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*view.Config, 0, len(s.modelOrder))
	for _, m := range s.modelOrder {
		out = append(out, s.models[m])
	}
	return out
}

func (s *Site) URLViews() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.urlViews)
}

func (s *Site) ModelViews() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.modelViews)
}
