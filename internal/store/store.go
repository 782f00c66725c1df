// Package store persists the last window size and position between previews.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// ErrNotFound is returned by Get when a key has never been set.
var ErrNotFound = errors.New("store: key not found")

// Keys for the two remembered values.
const (
	KeyLastSize     = "window.last_size"
	KeyLastPosition = "window.last_position"
)

// Store is a small key/value persistence interface.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// LastSize returns the remembered window size.
func LastSize(s Store) (geometry.Size, error) {
	var size geometry.Size
	err := getJSON(s, KeyLastSize, &size)
	return size, err
}

// SetLastSize remembers a window size.
func SetLastSize(s Store, size geometry.Size) error {
	return setJSON(s, KeyLastSize, size)
}

// LastPosition returns the remembered window origin.
func LastPosition(s Store) (geometry.Point, error) {
	var p geometry.Point
	err := getJSON(s, KeyLastPosition, &p)
	return p, err
}

// SetLastPosition remembers a window origin.
func SetLastPosition(s Store, p geometry.Point) error {
	return setJSON(s, KeyLastPosition, p)
}

func getJSON(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func setJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Namespaced prefixes every key, so hosts with different units (cells and
// pixels) can share one database without reading each other's geometry.
func Namespaced(s Store, prefix string) Store {
	return namespaced{inner: s, prefix: prefix + "/"}
}

type namespaced struct {
	inner  Store
	prefix string
}

func (n namespaced) Get(key string) ([]byte, error)     { return n.inner.Get(n.prefix + key) }
func (n namespaced) Set(key string, value []byte) error { return n.inner.Set(n.prefix+key, value) }

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = slices.Clone(value)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.m))
}
