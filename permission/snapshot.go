package permission

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Permission is one model permission code referenced by a route.
type Permission struct {
	Code   string
	Routes int
}

// RouteInfo represents one mounted admin route.
type RouteInfo struct {
	Method      string
	Path        string
	Name        string
	View        string
	Description string
	IsPublic    bool
	Permissions []string
}

// Mapping ties a route to a permission code.
type Mapping struct {
	Method         string
	Path           string
	PermissionCode string
}

// Snapshot contains all permissions, routes, and mappings of a router.
type Snapshot struct {
	Permissions []Permission
	Routes      []RouteInfo
	Mappings    []Mapping
}

// SnapshotFromRouter walks a chi router and builds a permission snapshot.
func SnapshotFromRouter(r chi.Routes) (Snapshot, error) {
	var routes []RouteInfo
	err := chi.Walk(r, func(method string, route string, handler http.Handler, _ ...func(http.Handler) http.Handler) error {
		meta, _ := ExtractMeta(handler)
		routes = append(routes, RouteInfo{
			Method:      strings.ToUpper(method),
			Path:        route,
			Name:        meta.Name,
			View:        meta.View,
			Description: meta.Description,
			IsPublic:    meta.IsPublic,
			Permissions: slices.Clone(meta.Permissions),
		})
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(routes), nil
}

// BuildSnapshot deduplicates routes and derives the permission tables.
func BuildSnapshot(routes []RouteInfo) Snapshot {
	permissions := make(map[string]Permission)
	byRoute := make(map[string]RouteInfo)
	mappings := make(map[string]Mapping)

	for _, route := range routes {
		if route.Method == "" || route.Path == "" {
			continue
		}
		key := route.Method + ":" + route.Path
		if _, exists := byRoute[key]; exists {
			continue
		}
		route.Permissions = uniqueNormalized(route.Permissions)
		byRoute[key] = route

		for _, code := range route.Permissions {
			p := permissions[code]
			p.Code = code
			p.Routes++
			permissions[code] = p
			mappings[key+":"+code] = Mapping{Method: route.Method, Path: route.Path, PermissionCode: code}
		}
	}

	return Snapshot{
		Permissions: sortedValues(permissions),
		Routes:      sortedValues(byRoute),
		Mappings:    sortedValues(mappings),
	}
}

func uniqueNormalized(codes []string) []string {
	var result []string
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" && !slices.Contains(result, code) {
			result = append(result, code)
		}
	}
	return result
}

func sortedValues[T any](m map[string]T) []T {
	if len(m) == 0 {
		return nil
	}
	result := make([]T, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		result = append(result, m[key])
	}
	return result
}
