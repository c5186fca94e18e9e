// Package storage holds the string-keyed stores behind achievement
// persistence: a durable store per visitor (what a browser keeps in
// localStorage) and a session store (sessionStorage).
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCorrupt marks a stored value that could not be decoded.
var ErrCorrupt = errors.New("corrupt stored value")

// Store is a string-keyed get/set store.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Backend stores values for many scopes, one scope per visitor.
type Backend interface {
	GetValue(scope, key string) (string, bool, error)
	SetValue(scope, key, value string) error
}

type scoped struct {
	backend Backend
	scope   string
}

// Scoped binds a backend to one scope.
func Scoped(b Backend, scope string) Store {
	return &scoped{backend: b, scope: scope}
}

func (s *scoped) Get(key string) (string, bool, error) {
	return s.backend.GetValue(s.scope, key)
}

func (s *scoped) Set(key, value string) error {
	return s.backend.SetValue(s.scope, key, value)
}

// Memory is an in-process store. It doubles as a Backend so the server can
// run without a database.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) GetValue(scope, key string) (string, bool, error) {
	return m.Get(scope + "/" + key)
}

func (m *Memory) SetValue(scope, key, value string) error {
	return m.Set(scope+"/"+key, value)
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// LoadList reads a JSON string list. A missing key is an empty list.
func LoadList(s Store, key string) ([]string, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decoding %s: %w: %v", key, ErrCorrupt, err)
	}
	return list, nil
}

// SaveList writes list as a JSON array, preserving order.
func SaveList(s Store, key string, list []string) error {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.Set(key, string(raw)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
