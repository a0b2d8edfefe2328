package builtin

import (
	"fmt"
	"maps"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/hook"
	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/plugin"
)

// ModelPermission exposes the user's model permissions to pages and can
// restrict querysets to records the user owns.
var ModelPermission = plugin.NewType("ModelPermissionPlugin", func(b plugin.Base) plugin.Plugin {
	return &modelPermission{Base: b}
}, plugin.WithFields(map[string]any{
	"user_can_access_owned_objects_only": false,
	"user_owned_objects_field":           "user",
}))

type modelPermission struct {
	plugin.Base
}

func (p *modelPermission) Description() string {
	return "exposes model permissions to pages and can limit querysets to owned records"
}

func (p *modelPermission) ownedOnly() bool {
	return p.Settings().GetBool("user_can_access_owned_objects_only", false) && !p.Host().User().IsSuperuser()
}

func (p *modelPermission) field() string {
	return p.Settings().GetString("user_owned_objects_field", "user")
}

func (p *modelPermission) Hooks() []hook.Func {
	return []hook.Func{
		hook.After[model.Query]("queryset", func(q model.Query, _ ...any) (model.Query, error) {
			if !p.ownedOnly() {
				return q, nil
			}
			filters := maps.Clone(q.Filters)
			if filters == nil {
				filters = map[string]string{}
			}
			filters[p.field()] = p.Host().User().ID()
			q.Filters = filters
			return q, nil
		}),
		hook.After[model.Record]("get_object", func(rec model.Record, args ...any) (model.Record, error) {
			if !p.ownedOnly() || rec == nil {
				return rec, nil
			}
			if fmt.Sprint(rec[p.field()]) != p.Host().User().ID() {
				id := ""
				if len(args) > 0 {
					id, _ = args[0].(string)
				}
				return nil, errors.NewNotFound(p.Host().ViewName(), id)
			}
			return rec, nil
		}),
		hook.After[map[string]any]("get_context", func(ctx map[string]any, _ ...any) (map[string]any, error) {
			perms, err := p.Host().Call("get_model_perms")
			if err != nil {
				return nil, err
			}
			ctx["perms"] = perms
			ctx["owned_only"] = p.ownedOnly()
			return ctx, nil
		}),
	}
}
