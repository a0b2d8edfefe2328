package plugin

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/leeforge/adminsite/errors"
)

// ServiceRegistry holds shared collaborators plugins look up at request
// time, keyed by "owner.service" (e.g. "store.settings", "auth.authorizer").
type ServiceRegistry struct {
	services map[string]any
	mu       sync.RWMutex
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]any),
	}
}

// Register stores a service. Returns error if key already exists.
func (sr *ServiceRegistry) Register(key string, svc any) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.services[key]; exists {
		return errors.NewAlreadyRegistered("service " + key)
	}
	sr.services[key] = svc
	return nil
}

// MustRegister stores a service, panicking on duplicate.
func (sr *ServiceRegistry) MustRegister(key string, svc any) {
	if err := sr.Register(key, svc); err != nil {
		panic(err)
	}
}

func (sr *ServiceRegistry) Has(key string) bool {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	_, exists := sr.services[key]
	return exists
}

// Keys returns all registered service keys, sorted alphabetically.
func (sr *ServiceRegistry) Keys() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return slices.Sorted(maps.Keys(sr.services))
}

// Resolve retrieves a service with compile-time type safety via generics.
func Resolve[T any](sr *ServiceRegistry, key string) (T, error) {
	var zero T
	if sr == nil {
		return zero, errors.NewNotRegistered("service " + key)
	}

	sr.mu.RLock()
	defer sr.mu.RUnlock()

	svc, exists := sr.services[key]
	if !exists {
		return zero, errors.NewNotRegistered("service " + key)
	}

	typed, ok := svc.(T)
	if !ok {
		return zero, errors.NewImproperlyConfigured("service %q is %T, want %s", key, svc, fmt.Sprintf("%T", zero))
	}
	return typed, nil
}

// MustResolve retrieves a service, panicking if not found or wrong type.
func MustResolve[T any](sr *ServiceRegistry, key string) T {
	svc, err := Resolve[T](sr, key)
	if err != nil {
		panic(err)
	}
	return svc
}
