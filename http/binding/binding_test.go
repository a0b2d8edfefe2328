package binding

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/adminsite/errors"
)

type listQuery struct {
	Search   string   `query:"q"`
	Ordering []string `query:"o"`
	Page     int      `query:"p" default:"1" validate:"min=1"`
	Active   *bool    `query:"active"`
	Limit    uint     `json:"limit" default:"20" validate:"max=100"`
	Ignored  string   `query:"-"`
	Color    color
}

type color string

func (c *color) UnmarshalQuery(s string) error {
	*c = color(strings.ToUpper(s))
	return nil
}

func TestQueryBindsAndDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?q=go&o=-title,id&active=true&color=red&Ignored=x", nil)
	var q listQuery
	require.NoError(t, Query(r, &q))

	assert.Equal(t, "go", q.Search)
	assert.Equal(t, []string{"-title", "id"}, q.Ordering)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, uint(20), q.Limit)
	require.NotNil(t, q.Active)
	assert.True(t, *q.Active)
	assert.Equal(t, color("RED"), q.Color)
	assert.Empty(t, q.Ignored)
}

func TestQueryArrayStrategies(t *testing.T) {
	values := url.Values{"o": {"a,b", "c"}}

	var q listQuery
	require.NoError(t, NewQueryParser().Bind(values, &q))
	assert.Equal(t, []string{"a,b", "c"}, q.Ordering, "repeated values win over commas")

	p := NewQueryParser()
	p.SetArrayStrategy(ArrayStrategyComma)
	q = listQuery{}
	require.NoError(t, p.Bind(values, &q))
	assert.Equal(t, []string{"a", "b"}, q.Ordering)
}

func TestQueryErrors(t *testing.T) {
	var q listQuery

	err := NewQueryParser().Bind(url.Values{"p": {"abc"}}, &q)
	var be *BindError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Page", be.Field)

	q = listQuery{}
	err = NewQueryParser().Bind(url.Values{"p": {"0"}, "limit": {"500"}}, &q)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve, 2)

	appErr := AppError(err)
	assert.ErrorIs(t, appErr, errors.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(appErr))
	var ae *errors.AppError
	require.ErrorAs(t, appErr, &ae)
	assert.Equal(t, "must be at least 1", ae.Details["Page"])
	assert.Equal(t, "must be at most 100", ae.Details["Limit"])

	assert.Error(t, NewQueryParser().Bind(url.Values{}, q))
	assert.NoError(t, AppError(nil))
}

func TestValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","n":2}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	v, err := Values(r)
	require.NoError(t, err)
	assert.Equal(t, "x", v["title"])
	assert.EqualValues(t, 2, v["n"])

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=y&title=z"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	v, err = Values(r)
	require.NoError(t, err)
	assert.Equal(t, "y", v["title"])

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
	r.Header.Set("Content-Type", "application/json")
	_, err = Values(r)
	require.Error(t, err)
	assert.ErrorIs(t, AppError(err), errors.ErrValidation)

	v, err = Values(nil)
	require.NoError(t, err)
	assert.Empty(t, v)
}
