package builtin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/plugin"
)

// RefreshParam carries the selected refresh interval in seconds.
const RefreshParam = "_refresh"

// Refresh offers periodic reload of list pages. It is active only when
// refresh_times is configured.
var Refresh = plugin.NewType("RefreshPlugin", func(b plugin.Base) plugin.Plugin {
	return &refresh{Base: b}
}, plugin.WithField("refresh_times", []int{}))

// RefreshOption is one selectable interval.
type RefreshOption struct {
	Time     int    `json:"time"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

type refreshSettings struct {
	RefreshTimes []int `json:"refresh_times"`
}

type refresh struct {
	plugin.Base
	times []int
}

func (p *refresh) Description() string {
	return "offers periodic reload of list pages"
}

func (p *refresh) InitRequest(ctx context.Context, args ...any) (bool, error) {
	var s refreshSettings
	if err := p.Settings().Bind(&s); err != nil {
		return false, err
	}
	if len(s.RefreshTimes) == 0 {
		return false, nil
	}
	p.times = s.RefreshTimes
	return p.Base.InitRequest(ctx, args...)
}

func (p *refresh) Hooks() []hook.Func {
	return []hook.Func{
		hook.After[[]string]("get_media", func(media []string, _ ...any) ([]string, error) {
			if p.current() != "" {
				media = append(media, "admin/js/refresh.js")
			}
			return media, nil
		}),
		hook.After[map[string]any]("get_context", func(ctx map[string]any, _ ...any) (map[string]any, error) {
			current := p.current()
			r := p.Host().Request()
			options := make([]RefreshOption, 0, len(p.times))
			for _, t := range p.times {
				s := strconv.Itoa(t)
				options = append(options, RefreshOption{
					Time:     t,
					URL:      queryString(r, RefreshParam, s),
					Selected: s == current,
				})
			}
			ctx["has_refresh"] = current != ""
			ctx["current_refresh"] = current
			ctx["clean_refresh_url"] = queryString(r, RefreshParam, "")
			ctx["refresh_times"] = options
			return ctx, nil
		}),
	}
}

func (p *refresh) current() string {
	if r := p.Host().Request(); r != nil {
		return r.URL.Query().Get(RefreshParam)
	}
	return ""
}

// queryString returns r's query with key set to value, or removed when
// value is empty.
func queryString(r *http.Request, key, value string) string {
	if r == nil {
		if value == "" {
			return ""
		}
		return "?" + key + "=" + value
	}
	q := r.URL.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
