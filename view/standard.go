package view

import (
	"net/http"
	"slices"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/plugin"
)

// Crumb is one breadcrumb entry.
type Crumb struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Template is the root of every admin view. Views registered with a site
// must extend it.
var Template = NewType("Template",
	WithAttrs(map[string]any{
		"template":              "admin/base.html",
		"base_template":         "admin/base_site.html",
		"need_login_permission": true,
		"title":                 "",
		"media":                 []string{},
	}),
	WithHook("get_context", templateContext),
	WithHook("get_media", templateMedia),
	WithHook("get_response", templateResponse),
)

func templateContext(f *Frame, _ ...any) (any, error) {
	media, err := CallAs[[]string](f.inst, "get_media")
	if err != nil {
		return nil, err
	}
	siteName := ""
	if s := f.inst.Site(); s != nil {
		siteName = s.Name()
	}
	return map[string]any{
		"view":          f.inst.ViewName(),
		"title":         f.AttrString("title", ""),
		"base_template": f.AttrString("base_template", ""),
		"site":          siteName,
		"media":         media,
		"user":          f.inst.user.Username(),
	}, nil
}

// templateMedia merges the media attr with assets of active plugins.
func templateMedia(f *Frame, _ ...any) (any, error) {
	media := slices.Clone(f.AttrStrings("media"))
	for _, p := range f.inst.plugins {
		mp, ok := p.(plugin.MediaProvider)
		if !ok {
			continue
		}
		for _, m := range mp.Media() {
			if !slices.Contains(media, m) {
				media = append(media, m)
			}
		}
	}
	return media, nil
}

func templateResponse(f *Frame, args ...any) (any, error) {
	var ctx map[string]any
	if len(args) > 0 {
		ctx, _ = args[0].(map[string]any)
	}
	return Page{
		Template: f.AttrString("template", ""),
		Context:  ctx,
		Status:   f.AttrInt("status", http.StatusOK),
	}, nil
}

// Render builds the context and hands it to get_response.
func Render(f *Frame) (any, error) {
	ctx, err := f.Call("get_context")
	if err != nil {
		return nil, err
	}
	return f.Call("get_response", ctx)
}

func renderGet(f *Frame, _ ...any) (any, error) { return Render(f) }

// Layout adds navigation to Template.
var Layout = NewType("Layout",
	Extends(Template),
	WithAttrs(map[string]any{
		"template":  "admin/layout.html",
		"menu_icon": "",
	}),
	WithHook("get_context", layoutContext),
	WithHook("get_menu_icon", func(f *Frame, _ ...any) (any, error) {
		return f.AttrString("menu_icon", ""), nil
	}),
	WithHook("get_breadcrumb", func(f *Frame, _ ...any) (any, error) {
		home := Crumb{Title: "Home"}
		if s := f.inst.Site(); s != nil {
			home.URL, _ = s.URL("index")
		}
		return []Crumb{home}, nil
	}),
	WithMethod("get", renderGet),
)

func layoutContext(f *Frame, args ...any) (any, error) {
	ctx, err := f.SuperContext(args...)
	if err != nil {
		return nil, err
	}
	crumbs, err := CallAs[[]Crumb](f.inst, "get_breadcrumb")
	if err != nil {
		return nil, err
	}
	icon, err := CallAs[string](f.inst, "get_menu_icon")
	if err != nil {
		return nil, err
	}
	var menu []*MenuItem
	if s := f.inst.Site(); s != nil {
		menu = s.Menus(f.inst.user)
	}
	ctx["nav_menu"] = menu
	ctx["breadcrumbs"] = crumbs
	ctx["menu_icon"] = icon
	return ctx, nil
}

// Dashboard is the site index.
var Dashboard = NewType("Dashboard",
	Extends(Layout),
	WithAttrs(map[string]any{
		"template":  "admin/dashboard.html",
		"title":     "Dashboard",
		"menu_icon": "dashboard",
		"widgets":   []string{},
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["widgets"] = f.AttrStrings("widgets")
		return ctx, nil
	}),
)

// Login is shown in place of views the user may not see.
var Login = NewType("Login",
	Extends(Template),
	WithAttrs(map[string]any{
		"template":              "admin/login.html",
		"title":                 "Log in",
		"need_login_permission": false,
		"http_method_names":     []string{"get", "head"},
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		next := ""
		if r := f.inst.req; r != nil {
			next = r.URL.Query().Get("next")
			if next == "" {
				next = r.URL.Path
			}
		}
		ctx["next"] = next
		return ctx, nil
	}),
	WithMethod("get", renderGet),
)

// requirePerm fails with Forbidden unless the boolean permission method
// named check allows the request.
func requirePerm(f *Frame, check string) error {
	ok, err := CallAs[bool](f.inst, check)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewForbidden("permission denied").
			WithDetail("view", f.inst.ViewName()).
			WithDetail("check", check)
	}
	return nil
}
