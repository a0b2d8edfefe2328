package view

import (
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/http/binding"
	"github.com/leeforge/adminsite/model"
)

// Model permission actions.
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionChange = "change"
	ActionDelete = "delete"
)

// ModelURL reverses the route name "<app>_<model>_<name>" for the
// instance's model.
func (i *Instance) ModelURL(name string, args ...string) (string, error) {
	m := i.Model()
	if m == nil {
		return "", errors.NewImproperlyConfigured("view %s has no model", i.ViewName())
	}
	if i.view.site == nil {
		return "", errors.NewImproperlyConfigured("view %s is not bound to a site", i.ViewName())
	}
	return i.view.site.URL(m.AppLabel+"_"+m.Name+"_"+name, args...)
}

// HasModelPerm reports whether the user may perform action on the
// instance's model. Actions listed in remove_permissions are never granted.
func HasModelPerm(i *Instance, action string) bool {
	m := i.Model()
	if m == nil {
		return false
	}
	if slices.Contains(AttrStringList(i, "remove_permissions"), action) {
		return false
	}
	return i.user.HasPerm(m.PermCode(action))
}

// AttrStringList reads a string list attribute from i.
func AttrStringList(i *Instance, name string) []string {
	return (&Frame{inst: i}).AttrStrings(name)
}

func manager(f *Frame) (model.Manager, error) {
	m := f.inst.Model()
	if m == nil || m.Manager == nil {
		return nil, errors.NewImproperlyConfigured("view %s has no model manager", f.inst.ViewName())
	}
	return m.Manager, nil
}

// ModelView is the base of views working on one registered model.
var ModelView = NewType("ModelView",
	Extends(Layout),
	WithAttrs(map[string]any{
		"remove_permissions": []string{},
		"ordering":           []string{},
		"fields":             []string{},
	}),
	WithMethod("init_request", func(f *Frame, _ ...any) (any, error) {
		if f.inst.Model() == nil {
			return nil, errors.NewImproperlyConfigured("view %s has no model", f.inst.ViewName())
		}
		return nil, nil
	}),
	WithMethod("has_view_permission", func(f *Frame, _ ...any) (any, error) {
		m := f.inst.Model()
		if m == nil || slices.Contains(f.AttrStrings("remove_permissions"), ActionView) {
			return false, nil
		}
		// change implies view
		return f.inst.user.HasPerm(m.PermCode(ActionView)) || f.inst.user.HasPerm(m.PermCode(ActionChange)), nil
	}),
	WithMethod("has_add_permission", func(f *Frame, _ ...any) (any, error) {
		return HasModelPerm(f.inst, ActionAdd), nil
	}),
	WithMethod("has_change_permission", func(f *Frame, _ ...any) (any, error) {
		return HasModelPerm(f.inst, ActionChange), nil
	}),
	WithMethod("has_delete_permission", func(f *Frame, _ ...any) (any, error) {
		return HasModelPerm(f.inst, ActionDelete), nil
	}),
	WithMethod("get_model_perms", func(f *Frame, _ ...any) (any, error) {
		perms := make(map[string]bool, 4)
		for _, action := range []string{ActionView, ActionAdd, ActionChange, ActionDelete} {
			ok, err := CallAs[bool](f.inst, "has_"+action+"_permission")
			if err != nil {
				return nil, err
			}
			perms[action] = ok
		}
		return perms, nil
	}),
	WithHook("get_context", modelContext),
	WithHook("get_breadcrumb", func(f *Frame, args ...any) (any, error) {
		v, err := f.Super(args...)
		if err != nil {
			return nil, err
		}
		crumbs, _ := v.([]Crumb)
		m := f.inst.Model()
		c := Crumb{Title: m.VerbosePlural()}
		if ok, _ := CallAs[bool](f.inst, "has_view_permission"); ok {
			c.URL, _ = f.inst.ModelURL("changelist")
		}
		return append(crumbs, c), nil
	}),
	WithHook("queryset", func(f *Frame, _ ...any) (any, error) {
		return model.Query{Ordering: f.AttrStrings("ordering")}, nil
	}),
	WithHook("get_object", func(f *Frame, args ...any) (any, error) {
		id := ""
		if len(args) > 0 {
			id, _ = args[0].(string)
		}
		mgr, err := manager(f)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, errors.NewNotFound(f.inst.Model().Name, id)
		}
		return mgr.Get(f.Context(), id)
	}),
	WithHook("get_object_url", func(f *Frame, args ...any) (any, error) {
		var rec model.Record
		if len(args) > 0 {
			rec, _ = args[0].(model.Record)
		}
		id := toString(rec["id"])
		var names []string
		if ok, _ := CallAs[bool](f.inst, "has_change_permission"); ok {
			names = append(names, "change")
		}
		if ok, _ := CallAs[bool](f.inst, "has_view_permission"); ok {
			names = append(names, "detail")
		}
		// Routes the site does not mount are skipped; the object URL is
		// only a redirect hint.
		for _, name := range names {
			url, err := f.inst.ModelURL(name, id)
			if errors.IsType(err, errors.ErrorTypeNotFound) {
				continue
			}
			return url, err
		}
		return "", nil
	}),
)

func modelContext(f *Frame, args ...any) (any, error) {
	ctx, err := f.SuperContext(args...)
	if err != nil {
		return nil, err
	}
	perms, err := f.Call("get_model_perms")
	if err != nil {
		return nil, err
	}
	m := f.inst.Model()
	ctx["opts"] = m.Label()
	ctx["app_label"] = m.AppLabel
	ctx["model_name"] = m.Name
	ctx["verbose_name"] = m.Verbose()
	ctx["verbose_name_plural"] = m.VerbosePlural()
	ctx["model_perms"] = perms
	return ctx, nil
}

// List shows a page of records.
var List = NewType("List",
	Extends(ModelView),
	WithAttrs(map[string]any{
		"template":      "admin/model_list.html",
		"perm_action":   ActionView,
		"list_display":  []string{"id"},
		"list_filter":   []string{},
		"list_per_page": 50,
	}),
	WithMethod("init_request", func(f *Frame, args ...any) (any, error) {
		if _, err := f.Super(args...); err != nil {
			return nil, err
		}
		return nil, requirePerm(f, "has_view_permission")
	}),
	WithHook("get_list_queryset", listQueryset),
	WithHook("get_result_list", func(f *Frame, _ ...any) (any, error) {
		q, err := CallAs[model.Query](f.inst, "get_list_queryset")
		if err != nil {
			return nil, err
		}
		mgr, err := manager(f)
		if err != nil {
			return nil, err
		}
		rows, total, err := mgr.List(f.Context(), q)
		if err != nil {
			return nil, err
		}
		f.inst.SetAttr("result_count", total)
		f.inst.SetAttr("result_list", rows)
		return rows, nil
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		perPage := f.AttrInt("list_per_page", 50)
		total := f.AttrInt("result_count", 0)
		ctx["results"], _ = f.Attr("result_list")
		ctx["result_count"] = total
		ctx["list_display"] = f.AttrStrings("list_display")
		ctx["page"] = f.AttrInt("page_num", 1)
		ctx["per_page"] = perPage
		ctx["page_count"] = (total + perPage - 1) / max(perPage, 1)
		if ctx["title"] == "" {
			ctx["title"] = f.inst.Model().VerbosePlural()
		}
		return ctx, nil
	}),
	WithMethod("get", func(f *Frame, _ ...any) (any, error) {
		if _, err := f.Call("get_result_list"); err != nil {
			return nil, err
		}
		return Render(f)
	}),
)

// listParams are the changelist query parameters: q searches, o orders
// (comma separated, "-" prefix descends) and p pages from 1. The page cap
// keeps the offset from overflowing.
type listParams struct {
	Search   string   `query:"q"`
	Ordering []string `query:"o"`
	Page     int      `query:"p" default:"1" validate:"min=1,max=1000000"`
}

// listQueryset narrows queryset with the request parameters. Any
// list_filter field filters by equality.
func listQueryset(f *Frame, _ ...any) (any, error) {
	q, err := CallAs[model.Query](f.inst, "queryset")
	if err != nil {
		return nil, err
	}
	perPage := f.AttrInt("list_per_page", 50)
	page := 1
	if r := f.inst.req; r != nil {
		var params listParams
		if err := binding.Query(r, &params); err != nil {
			return nil, binding.AppError(err)
		}
		q.Search = params.Search
		if len(params.Ordering) > 0 {
			q.Ordering = params.Ordering
		}
		page = params.Page

		values := r.URL.Query()
		for _, field := range f.AttrStrings("list_filter") {
			if v := values.Get(field); v != "" {
				if q.Filters == nil {
					q.Filters = make(map[string]string)
				}
				q.Filters[field] = v
			}
		}
	}
	f.inst.SetAttr("page_num", page)
	q.Limit = perPage
	q.Offset = (page - 1) * perPage
	return q, nil
}

// loadObject resolves the "id" path argument into the object attr.
func loadObject(f *Frame) error {
	id := f.inst.params["id"]
	obj, err := CallAs[model.Record](f.inst, "get_object", id)
	if err != nil {
		return err
	}
	f.inst.SetAttr("object_id", id)
	f.inst.SetAttr("object", obj)
	return nil
}

// Detail shows one record.
var Detail = NewType("Detail",
	Extends(ModelView),
	WithAttrs(map[string]any{
		"template":    "admin/model_detail.html",
		"perm_action": ActionView,
	}),
	WithMethod("init_request", func(f *Frame, args ...any) (any, error) {
		if _, err := f.Super(args...); err != nil {
			return nil, err
		}
		if err := requirePerm(f, "has_view_permission"); err != nil {
			return nil, err
		}
		return nil, loadObject(f)
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["object"], _ = f.Attr("object")
		ctx["fields"] = f.AttrStrings("fields")
		return ctx, nil
	}),
)

// Form edits a record. Create and Update specialize it.
var Form = NewType("Form",
	Extends(ModelView),
	WithAttrs(map[string]any{
		"template":        "admin/model_form.html",
		"required_fields": []string{},
	}),
	WithHook("get_form_datas", formDatas),
	WithHook("valid_forms", func(f *Frame, args ...any) (any, error) {
		var datas model.Record
		if len(args) > 0 {
			datas, _ = args[0].(model.Record)
		}
		problems := map[string]string{}
		for _, field := range f.AttrStrings("required_fields") {
			if v, ok := datas[field]; !ok || toString(v) == "" {
				problems[field] = "this field is required"
			}
		}
		return problems, nil
	}),
	WithHook("save_models", func(f *Frame, args ...any) (any, error) {
		var datas model.Record
		if len(args) > 0 {
			datas, _ = args[0].(model.Record)
		}
		mgr, err := manager(f)
		if err != nil {
			return nil, err
		}
		id, _ := f.Attr("object_id")
		saved, err := mgr.Save(f.Context(), toString(id), datas)
		if err != nil {
			return nil, err
		}
		f.inst.SetAttr("object", saved)
		return saved, nil
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["object"], _ = f.Attr("object")
		ctx["fields"] = f.AttrStrings("fields")
		if problems, ok := f.Attr("form_errors"); ok {
			ctx["errors"] = problems
		}
		return ctx, nil
	}),
	WithHook("post_response", func(f *Frame, _ ...any) (any, error) {
		obj, _ := f.Attr("object")
		rec, _ := obj.(model.Record)
		next, err := CallAs[string](f.inst, "get_object_url", rec)
		if err != nil {
			return nil, err
		}
		return Page{
			Template: f.AttrString("template", ""),
			Context:  map[string]any{"object": rec, "saved": true, "redirect": next},
			Status:   f.AttrInt("status", http.StatusOK),
		}, nil
	}),
	WithMethod("get", renderGet),
	WithMethod("post", func(f *Frame, _ ...any) (any, error) {
		datas, err := CallAs[model.Record](f.inst, "get_form_datas")
		if err != nil {
			return nil, err
		}
		problems, err := CallAs[map[string]string](f.inst, "valid_forms", datas)
		if err != nil {
			return nil, err
		}
		if len(problems) > 0 {
			f.inst.SetAttr("form_errors", problems)
			f.inst.SetAttr("status", http.StatusBadRequest)
			return Render(f)
		}
		if _, err := f.Call("save_models", datas); err != nil {
			return nil, err
		}
		return f.Call("post_response")
	}),
)

// formDatas decodes a JSON or form encoded body, keeping only the fields
// attr when it is set.
func formDatas(f *Frame, _ ...any) (any, error) {
	values, err := binding.Values(f.inst.req)
	if err != nil {
		return nil, binding.AppError(err)
	}
	datas := model.Record(values)
	if fields := f.AttrStrings("fields"); len(fields) > 0 {
		maps.DeleteFunc(datas, func(k string, _ any) bool {
			return !slices.Contains(fields, k)
		})
	}
	delete(datas, "id")
	return datas, nil
}

// Create adds a record.
var Create = NewType("Create",
	Extends(Form),
	WithAttr("perm_action", ActionAdd),
	WithMethod("init_request", func(f *Frame, args ...any) (any, error) {
		if _, err := f.Super(args...); err != nil {
			return nil, err
		}
		return nil, requirePerm(f, "has_add_permission")
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["add"] = true
		ctx["title"] = "Add " + f.inst.Model().Verbose()
		return ctx, nil
	}),
	WithHook("save_models", func(f *Frame, args ...any) (any, error) {
		f.inst.SetAttr("status", http.StatusCreated)
		return f.Super(args...)
	}),
)

// Update changes an existing record.
var Update = NewType("Update",
	Extends(Form),
	WithAttr("perm_action", ActionChange),
	WithMethod("init_request", func(f *Frame, args ...any) (any, error) {
		if _, err := f.Super(args...); err != nil {
			return nil, err
		}
		if err := requirePerm(f, "has_change_permission"); err != nil {
			return nil, err
		}
		return nil, loadObject(f)
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["add"] = false
		ctx["title"] = "Change " + f.inst.Model().Verbose()
		return ctx, nil
	}),
)

// Delete removes a record after confirmation.
var Delete = NewType("Delete",
	Extends(ModelView),
	WithAttrs(map[string]any{
		"template":          "admin/model_delete.html",
		"perm_action":       ActionDelete,
		"http_method_names": []string{"get", "post", "delete", "head"},
	}),
	WithMethod("init_request", func(f *Frame, args ...any) (any, error) {
		if _, err := f.Super(args...); err != nil {
			return nil, err
		}
		if err := requirePerm(f, "has_delete_permission"); err != nil {
			return nil, err
		}
		return nil, loadObject(f)
	}),
	WithHook("delete_model", func(f *Frame, _ ...any) (any, error) {
		mgr, err := manager(f)
		if err != nil {
			return nil, err
		}
		id, _ := f.Attr("object_id")
		return nil, mgr.Delete(f.Context(), toString(id))
	}),
	WithHook("get_context", func(f *Frame, args ...any) (any, error) {
		ctx, err := f.SuperContext(args...)
		if err != nil {
			return nil, err
		}
		ctx["object"], _ = f.Attr("object")
		ctx["title"] = "Delete " + f.inst.Model().Verbose()
		return ctx, nil
	}),
	WithMethod("get", renderGet),
	WithMethod("post", deleteObject),
	WithMethod("delete", deleteObject),
)

func deleteObject(f *Frame, _ ...any) (any, error) {
	if _, err := f.Call("delete_model"); err != nil {
		return nil, err
	}
	next := ""
	if ok, _ := CallAs[bool](f.inst, "has_view_permission"); ok {
		next, _ = f.inst.ModelURL("changelist")
	}
	obj, _ := f.Attr("object")
	return Page{
		Template: f.AttrString("template", ""),
		Context:  map[string]any{"object": obj, "deleted": true, "redirect": next},
		Status:   http.StatusOK,
	}, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
