// Package auth holds the user collaborator of the admin site and the casbin
// backed model permission policies.
package auth

import (
	"context"
	"net/http"
	"slices"
)

// User is the requesting account as the admin site sees it.
type User interface {
	ID() string
	Username() string
	IsActive() bool
	IsStaff() bool
	IsSuperuser() bool
	// HasPerm checks a permission code such as "blog.change_post".
	HasPerm(code string) bool
}

// StaticUser is a User with a fixed permission list.
type StaticUser struct {
	UserID    string   `mapstructure:"id" json:"id" yaml:"id"`
	Name      string   `mapstructure:"username" json:"username" yaml:"username"`
	Active    bool     `mapstructure:"active" json:"active" yaml:"active"`
	Staff     bool     `mapstructure:"staff" json:"staff" yaml:"staff"`
	Superuser bool     `mapstructure:"superuser" json:"superuser" yaml:"superuser"`
	Perms     []string `mapstructure:"perms" json:"perms" yaml:"perms"`
}

func (u *StaticUser) ID() string        { return u.UserID }
func (u *StaticUser) Username() string  { return u.Name }
func (u *StaticUser) IsActive() bool    { return u.Active }
func (u *StaticUser) IsStaff() bool     { return u.Staff }
func (u *StaticUser) IsSuperuser() bool { return u.Superuser }

func (u *StaticUser) HasPerm(code string) bool {
	if !u.Active {
		return false
	}
	return u.Superuser || slices.Contains(u.Perms, code)
}

// Anonymous is the user of unauthenticated requests.
var Anonymous User = &StaticUser{Name: "anonymous"}

type userKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromContext returns the user stored in ctx, or Anonymous.
func FromContext(ctx context.Context) User {
	if ctx == nil {
		return Anonymous
	}
	if u, ok := ctx.Value(userKey{}).(User); ok && u != nil {
		return u
	}
	return Anonymous
}

// Resolver finds the user of a request. A nil user means anonymous.
type Resolver func(r *http.Request) (User, error)

// HeaderResolver looks the user up by the value of header.
func HeaderResolver(header string, users map[string]User) Resolver {
	return func(r *http.Request) (User, error) {
		name := r.Header.Get(header)
		if name == "" {
			return nil, nil
		}
		return users[name], nil
	}
}

// Middleware resolves the user once per request and stores it in the
// request context.
func Middleware(resolve Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolve != nil {
				u, err := resolve(r)
				if err != nil {
					http.Error(w, err.Error(), http.StatusUnauthorized)
					return
				}
				if u != nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
