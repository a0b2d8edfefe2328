package auth

import (
	"fmt"
	"strings"
	"sync"

	casbinlib "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Objects are "app.model", actions are view/add/change/delete or "*".
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Authorizer evaluates model permission codes against casbin policies.
type Authorizer struct {
	enforcer *casbinlib.Enforcer
	mu       sync.RWMutex
}

// NewAuthorizer creates an Authorizer with an in-memory policy store.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	enforcer, err := casbinlib.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Grant allows subject (a user or role) to perform action on obj.
// obj may end with "*", e.g. "blog.*".
func (a *Authorizer) Grant(subject, obj, action string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.enforcer.AddPolicy(subject, obj, action)
	return err
}

// AssignRole makes user inherit the policies of role.
func (a *Authorizer) AssignRole(user, role string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.enforcer.AddGroupingPolicy(user, role)
	return err
}

// Can checks a permission code like "blog.change_post" for subject.
func (a *Authorizer) Can(subject, code string) bool {
	obj, act, ok := SplitPermCode(code)
	if !ok {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	allowed, err := a.enforcer.Enforce(subject, obj, act)
	return err == nil && allowed
}

// Wrap returns u with HasPerm also consulting the policies.
func (a *Authorizer) Wrap(u User) User {
	if u == nil {
		return nil
	}
	return &PolicyUser{User: u, authz: a}
}

// PolicyUser is a User whose permissions come from an Authorizer as well.
type PolicyUser struct {
	User
	authz *Authorizer
}

func (u *PolicyUser) HasPerm(code string) bool {
	if !u.IsActive() {
		return false
	}
	return u.User.HasPerm(code) || u.authz.Can(u.Username(), code)
}

// SplitPermCode turns "app.action_model" into ("app.model", "action").
func SplitPermCode(code string) (obj, action string, ok bool) {
	app, rest, found := strings.Cut(code, ".")
	if !found || app == "" {
		return "", "", false
	}
	action, modelName, found := strings.Cut(rest, "_")
	if !found || action == "" || modelName == "" {
		return "", "", false
	}
	return app + "." + modelName, action, true
}
