package model

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/leeforge/adminsite/errors"
)

// MemoryManager is a Manager over an in-process table. The demo binary and
// tests use it; ids are assigned sequentially.
type MemoryManager struct {
	name   string
	rows   map[string]Record
	nextID int
	mu     sync.RWMutex
}

func NewMemoryManager(name string, rows ...Record) *MemoryManager {
	m := &MemoryManager{name: name, rows: make(map[string]Record)}
	for _, r := range rows {
		_, _ = m.Save(context.Background(), "", r)
	}
	return m
}

func (m *MemoryManager) List(_ context.Context, q Query) ([]Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, r := range m.rows {
		if q.Search != "" && !matches(r, q.Search) {
			continue
		}
		if !filtered(r, q.Filters) {
			continue
		}
		out = append(out, maps.Clone(r))
	}
	sortRecords(out, q.Ordering)

	total := len(out)
	if q.Offset > 0 {
		out = out[min(q.Offset, len(out)):]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (m *MemoryManager) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFound(m.name, id)
	}
	return maps.Clone(r), nil
}

// Save creates a row when id is empty, else replaces fields of row id.
func (m *MemoryManager) Save(_ context.Context, id string, values Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		m.nextID++
		id = strconv.Itoa(m.nextID)
		m.rows[id] = Record{}
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFound(m.name, id)
	}
	maps.Copy(row, values)
	row["id"] = id
	return maps.Clone(row), nil
}

func (m *MemoryManager) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return errors.NewNotFound(m.name, id)
	}
	delete(m.rows, id)
	return nil
}

func matches(r Record, term string) bool {
	term = strings.ToLower(term)
	for _, v := range r {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func filtered(r Record, filters map[string]string) bool {
	for k, want := range filters {
		if toString(r[k]) != want {
			return false
		}
	}
	return true
}

// sortRecords orders by the given fields ("-field" descending), then by id.
func sortRecords(rows []Record, ordering []string) {
	keys := append(slices.Clone(ordering), "id")
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			desc := strings.HasPrefix(key, "-")
			field := strings.TrimPrefix(key, "-")
			a, b := rows[i][field], rows[j][field]
			c := compare(a, b)
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b any) int {
	as, bs := toString(a), toString(b)
	ai, aerr := strconv.Atoi(as)
	bi, berr := strconv.Atoi(bs)
	if aerr == nil && berr == nil {
		return ai - bi
	}
	return strings.Compare(as, bs)
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
