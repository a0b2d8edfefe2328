package site

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leeforge/adminsite/auth"
	"github.com/leeforge/adminsite/view"
)

// Title turns an identifier like "blog_posts" into "Blog Posts".
func Title(s string) string {
	// Casers keep state; one per call.
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// Menus builds the navigation tree u may see. Model configs appear under
// their app (or menu_group path) unless menu_show is false; URL views
// appear when their view config sets menu_show. Entries are sorted by the
// order attr, groups by their first entry.
func (s *Site) Menus(u auth.User) []*view.MenuItem {
	if u == nil {
		u = auth.Anonymous
	}
	s.mu.RLock()
	configs := make([]*view.Config, 0, len(s.modelOrder))
	for _, m := range s.modelOrder {
		configs = append(configs, s.models[m])
	}
	urlViews := slices.Clone(s.urlViews)
	s.mu.RUnlock()

	root := &view.MenuItem{}
	for _, cfg := range configs {
		m := cfg.Model()
		if !attrBool(cfg, "menu_show", true) {
			continue
		}
		if !u.HasPerm(m.PermCode(view.ActionView)) && !u.HasPerm(m.PermCode(view.ActionChange)) {
			continue
		}
		item := &view.MenuItem{
			Title: attrString(cfg, "menu_name", Title(m.VerbosePlural())),
			Icon:  attrString(cfg, "menu_icon", ""),
			Perm:  m.PermCode(view.ActionView),
			Order: attrInt(cfg, "order", 0),
		}
		item.URL, _ = s.ModelURL(m, "changelist")
		group := strings.Fields(attrString(cfg, "menu_group", ""))
		if len(group) == 0 {
			group = []string{Title(m.AppLabel)}
		}
		insert(root, group, item)
	}

	for _, r := range urlViews {
		cfg := s.ViewConfig(r.View)
		if !attrBool(cfg, "menu_show", false) {
			continue
		}
		perm := attrString(cfg, "perm", "")
		if perm != "" && !u.HasPerm(perm) {
			continue
		}
		item := &view.MenuItem{
			Title: attrString(cfg, "menu_name", Title(r.Name)),
			Icon:  attrString(cfg, "menu_icon", ""),
			Perm:  perm,
			Order: attrInt(cfg, "order", 0),
		}
		item.URL, _ = s.URL(r.Name)
		insert(root, strings.Fields(attrString(cfg, "menu_group", "")), item)
	}

	sortMenu(root)
	return root.Children
}

// insert adds item below the group path, creating groups as needed.
func insert(root *view.MenuItem, path []string, item *view.MenuItem) {
	node := root
	for _, title := range path {
		i := slices.IndexFunc(node.Children, func(c *view.MenuItem) bool {
			return c.Title == title && c.URL == ""
		})
		if i < 0 {
			node.Children = append(node.Children, &view.MenuItem{Title: title, Order: item.Order})
			i = len(node.Children) - 1
		}
		node = node.Children[i]
		node.Order = min(node.Order, item.Order)
	}
	node.Children = append(node.Children, item)
}

func sortMenu(node *view.MenuItem) {
	slices.SortStableFunc(node.Children, func(a, b *view.MenuItem) int {
		return a.Order - b.Order
	})
	for _, c := range node.Children {
		sortMenu(c)
	}
}

func attrString(cfg *view.Config, name, def string) string {
	if v, ok := cfg.Attr(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func attrInt(cfg *view.Config, name string, def int) int {
	if v, ok := cfg.Attr(name); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

func attrBool(cfg *view.Config, name string, def bool) bool {
	if v, ok := cfg.Attr(name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
