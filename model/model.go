// Package model describes the data models an admin site is built around.
// Query semantics stay behind the Manager interface.
package model

import (
	"context"
	"fmt"
	"strings"
)

// Model is the metadata of one registrable data model.
type Model struct {
	AppLabel string
	Name     string
	// VerboseName defaults to Name, VerboseNamePlural to VerboseName + "s".
	VerboseName       string
	VerboseNamePlural string
	// Abstract models cannot be registered.
	Abstract bool
	Manager  Manager
}

// New declares a concrete model.
func New(app, name string, manager Manager) *Model {
	return &Model{AppLabel: app, Name: strings.ToLower(name), Manager: manager}
}

// Label is "app.model".
func (m *Model) Label() string {
	return m.AppLabel + "." + m.Name
}

func (m *Model) String() string { return m.Label() }

func (m *Model) Verbose() string {
	if m.VerboseName != "" {
		return m.VerboseName
	}
	return m.Name
}

func (m *Model) VerbosePlural() string {
	if m.VerboseNamePlural != "" {
		return m.VerboseNamePlural
	}
	return m.Verbose() + "s"
}

// PermCode returns "app.action_model", e.g. "blog.change_post".
func (m *Model) PermCode(action string) string {
	return fmt.Sprintf("%s.%s_%s", m.AppLabel, action, m.Name)
}

// Record is one row as the admin sees it.
type Record map[string]any

// Query narrows a listing.
type Query struct {
	Search   string
	Filters  map[string]string
	Ordering []string
	Offset   int
	Limit    int
}

// Manager is the data access seam. Implementations live outside the admin.
type Manager interface {
	List(ctx context.Context, q Query) ([]Record, int, error)
	Get(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, id string, values Record) (Record, error)
	Delete(ctx context.Context, id string) error
}
