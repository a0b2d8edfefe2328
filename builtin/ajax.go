// Package builtin holds the plugins shipped with the admin and Install,
// which wires them and the standard views into a site.
package builtin

import (
	"context"
	"maps"
	"net/http"

	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/http/middleware"
	"github.com/leeforge/adminsite/http/responder"
	"github.com/leeforge/adminsite/plugin"
	"github.com/leeforge/adminsite/view"
)

// AjaxParam forces the ajax plugins on for clients that cannot set headers.
const AjaxParam = "_ajax"

// JSON is a view result that writes data in the response envelope.
type JSON struct {
	Status int
	Data   any
}

func (j JSON) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := j.Status
	if status == 0 {
		status = http.StatusOK
	}
	_ = responder.Write(w, status, j.Data,
		responder.WithTraceID(middleware.GetTraceIDFromRequest(r)),
		responder.WithTook(middleware.GetRequestDuration(r.Context())),
	)
}

// Ajax answers XMLHttpRequest clients with JSON instead of a page.
var Ajax = plugin.NewType("AjaxPlugin", func(b plugin.Base) plugin.Plugin {
	return &ajax{Base: b}
})

type ajax struct {
	plugin.Base
}

func (p *ajax) Description() string { return "answers script requests with JSON" }

// IsAjax reports whether r came from a script.
func IsAjax(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" || r.URL.Query().Has(AjaxParam)
}

func (p *ajax) InitRequest(ctx context.Context, args ...any) (bool, error) {
	if !IsAjax(p.Host().Request()) {
		return false, nil
	}
	return p.Base.InitRequest(ctx, args...)
}

func (p *ajax) Hooks() []hook.Func {
	return []hook.Func{
		hook.Before[any]("get_response", p.response),
		hook.After[any]("post_response", p.saved),
	}
}

// response replaces the page with its context. A post reaching
// get_response is a form that failed validation.
func (p *ajax) response(_ func() (any, error), args ...any) (any, error) {
	host := p.Host()
	if host.Method() == "post" {
		errs, _ := host.Attr("form_errors")
		return JSON{Status: http.StatusBadRequest, Data: map[string]any{
			"result": "error",
			"errors": errs,
		}}, nil
	}

	var ctx map[string]any
	if len(args) > 0 {
		ctx, _ = args[0].(map[string]any)
	}
	status := http.StatusOK
	if v, ok := host.Attr("status"); ok {
		if n, ok := v.(int); ok {
			status = n
		}
	}
	return JSON{Status: status, Data: ctx}, nil
}

func (p *ajax) saved(result any, _ ...any) (any, error) {
	page, ok := result.(view.Page)
	if !ok {
		return result, nil
	}
	data := map[string]any{"result": "success"}
	maps.Copy(data, page.Context)
	return JSON{Status: page.Status, Data: data}, nil
}
