package builtin

import (
	"fmt"

	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/site"
	"github.com/leeforge/adminsite/view"
)

// ModelRoutes are the model views mounted below "/{app}/{model}".
var ModelRoutes = []site.Route{
	{Pattern: "/", View: view.List, Name: "changelist"},
	{Pattern: "/add", View: view.Create, Name: "add"},
	{Pattern: "/{id}", View: view.Detail, Name: "detail"},
	{Pattern: "/{id}/update", View: view.Update, Name: "change"},
	{Pattern: "/{id}/delete", View: view.Delete, Name: "delete"},
}

// URLRoutes are the site level views.
var URLRoutes = []site.Route{
	{Pattern: "/", View: view.Dashboard, Name: "index"},
	{Pattern: "/login", View: view.Login, Name: "login"},
}

var plugins = []struct {
	plugin *plugin.Type
	view   *view.Type
}{
	{Ajax, view.Template},
	{Theme, view.Layout},
	{ModelPermission, view.ModelView},
	{Refresh, view.List},
}

// Install mounts the standard views on s, makes Login the login view and
// attaches the built-in plugins.
func Install(s *site.Site) error {
	for _, r := range URLRoutes {
		if err := s.AddURLView(r.Pattern, r.View, r.Name, false); err != nil {
			return fmt.Errorf("builtin: url view %s: %w", r.Name, err)
		}
	}
	for _, r := range ModelRoutes {
		if err := s.AddModelView(r.Pattern, r.View, r.Name); err != nil {
			return fmt.Errorf("builtin: model view %s: %w", r.Name, err)
		}
	}
	if err := s.SetLoginView(view.Login); err != nil {
		return fmt.Errorf("builtin: login view: %w", err)
	}
	for _, p := range plugins {
		if err := s.AddPlugin(p.plugin, p.view); err != nil {
			return fmt.Errorf("builtin: plugin %s: %w", p.plugin.Name(), err)
		}
	}
	return nil
}
