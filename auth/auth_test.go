package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticUserHasPerm(t *testing.T) {
	u := &StaticUser{Name: "ed", Active: true, Staff: true, Perms: []string{"blog.view_post"}}
	assert.True(t, u.HasPerm("blog.view_post"))
	assert.False(t, u.HasPerm("blog.change_post"))

	root := &StaticUser{Name: "root", Active: true, Superuser: true}
	assert.True(t, root.HasPerm("anything.at_all"))

	root.Active = false
	assert.False(t, root.HasPerm("anything.at_all"), "inactive users have no permissions")
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	u := &StaticUser{Name: "ed"}
	ctx := WithUser(context.Background(), u)
	assert.Equal(t, User(u), FromContext(ctx))
}

func TestMiddlewareWithHeaderResolver(t *testing.T) {
	ed := &StaticUser{Name: "ed", Active: true}
	mw := Middleware(HeaderResolver("X-Admin-User", map[string]User{"ed": ed}))

	var seen User
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-User", "ed")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, User(ed), seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, Anonymous, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-User", "ghost")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, Anonymous, seen)
}

func TestSplitPermCode(t *testing.T) {
	obj, act, ok := SplitPermCode("blog.change_post_tag")
	require.True(t, ok)
	assert.Equal(t, "blog.post_tag", obj)
	assert.Equal(t, "change", act)

	for _, bad := range []string{"", "blog", "blog.view", ".view_post", "blog._post"} {
		_, _, ok := SplitPermCode(bad)
		assert.False(t, ok, bad)
	}
}

func TestAuthorizerPolicies(t *testing.T) {
	authz, err := NewAuthorizer()
	require.NoError(t, err)

	require.NoError(t, authz.Grant("editor", "blog.*", "change"))
	require.NoError(t, authz.Grant("editor", "blog.post", "view"))
	require.NoError(t, authz.Grant("auditor", "shop.order", "*"))
	require.NoError(t, authz.AssignRole("ed", "editor"))

	assert.True(t, authz.Can("ed", "blog.change_post"))
	assert.True(t, authz.Can("ed", "blog.change_comment"))
	assert.True(t, authz.Can("ed", "blog.view_post"))
	assert.False(t, authz.Can("ed", "blog.delete_post"))
	assert.False(t, authz.Can("ed", "shop.view_order"))
	assert.True(t, authz.Can("auditor", "shop.delete_order"))
	assert.False(t, authz.Can("ed", "malformed"))

	ed := authz.Wrap(&StaticUser{Name: "ed", Active: true, Staff: true, Perms: []string{"shop.view_order"}})
	assert.True(t, ed.HasPerm("blog.change_post"), "policy grant")
	assert.True(t, ed.HasPerm("shop.view_order"), "static grant")
	assert.False(t, ed.HasPerm("blog.delete_post"))
	assert.True(t, ed.IsStaff())

	inactive := authz.Wrap(&StaticUser{Name: "ed"})
	assert.False(t, inactive.HasPerm("blog.change_post"))
	assert.Nil(t, authz.Wrap(nil))
}
