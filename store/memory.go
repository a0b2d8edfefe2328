package store

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process Store. Settings are lost on restart.
type Memory struct {
	users map[string]map[string]string
	mu    sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, user, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.users[user][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, user, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, ok := m.users[user]
	if !ok {
		settings = make(map[string]string)
		m.users[user] = settings
	}
	settings[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, user, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users[user], key)
	return nil
}

func (m *Memory) All(_ context.Context, user string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := maps.Clone(m.users[user])
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
