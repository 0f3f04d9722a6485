package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing.
type Memory struct {
	m     sync.RWMutex
	store map[string][]memver
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

type memver struct {
	id      string
	data    []byte
	created time.Time
}

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]memver)}
}

// Exists reports whether path has at least one version.
func (ms *Memory) Exists(_ context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	ms.m.RLock()
	vs := ms.store[path]
	ms.m.RUnlock()
	return len(vs) > 0, nil
}

// Put appends a new version of path. Version ids are ulids, so later
// versions always sort after earlier ones.
func (ms *Memory) Put(_ context.Context, path string, data []byte) (Version, error) {
	v := memver{
		id:      ulid.Make().String(),
		data:    append([]byte(nil), data...),
		created: time.Now().UTC(),
	}
	ms.m.Lock()
	ms.store[path] = append(ms.store[path], v)
	ms.m.Unlock()
	return Version{ID: v.id, Path: path, Size: int64(len(v.data)), CreatedAt: v.created}, nil
}

// Latest returns the most recently stored version of path.
func (ms *Memory) Latest(_ context.Context, path string) (Version, error) {
	ms.m.RLock()
	vs := ms.store[path]
	ms.m.RUnlock()
	if len(vs) == 0 {
		return Version{}, ErrNotFound
	}
	v := vs[len(vs)-1]
	return Version{ID: v.id, Path: path, Size: int64(len(v.data)), CreatedAt: v.created}, nil
}

// Read returns the bytes of the given version of path.
func (ms *Memory) Read(_ context.Context, path string, versionID string) ([]byte, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	vs := ms.store[path]
	if len(vs) == 0 {
		return nil, ErrNotFound
	}
	for _, v := range vs {
		if v.id == versionID {
			return append([]byte(nil), v.data...), nil
		}
	}
	return nil, ErrNoVersion
}

// ListKeys returns every path having at least one version, sorted.
func (ms *Memory) ListKeys(_ context.Context) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k, vs := range ms.store {
		if len(vs) > 0 {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	sort.Strings(result)
	return result, nil
}

// DeleteAll removes every version of path.
func (ms *Memory) DeleteAll(_ context.Context, path string) error {
	ms.m.Lock()
	delete(ms.store, path)
	ms.m.Unlock()
	return nil
}
