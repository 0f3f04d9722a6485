package checkpoint

import (
	"context"
	"sync"
	"time"
)

// Memory implements an in-memory Store. It is intended mainly for testing
// and for hosts running on the memory blob store.
type Memory struct {
	m       sync.Mutex
	records map[string][]Record
}

var _ Store = &Memory{}

// NewMemory returns a new, empty memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]Record)}
}

// Create appends a record with Seq equal to the current count for path.
// The mutex covers both steps, so unlike Mongo this cannot misnumber under
// concurrency.
func (s *Memory) Create(_ context.Context, path string, versionID string) (Record, error) {
	s.m.Lock()
	defer s.m.Unlock()
	rec := Record{
		Path:      path,
		Seq:       len(s.records[path]),
		CreatedAt: time.Now().UTC(),
		VersionID: versionID,
	}
	s.records[path] = append(s.records[path], rec)
	return rec, nil
}

// List returns the records for path in insertion order.
func (s *Memory) List(_ context.Context, path string) ([]Record, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]Record(nil), s.records[path]...), nil
}

// Retarget moves every record from oldPath to newPath.
func (s *Memory) Retarget(_ context.Context, oldPath, newPath string) error {
	s.m.Lock()
	defer s.m.Unlock()
	moved := s.records[oldPath]
	if len(moved) == 0 {
		return nil
	}
	for i := range moved {
		moved[i].Path = newPath
	}
	s.records[newPath] = append(s.records[newPath], moved...)
	delete(s.records, oldPath)
	return nil
}
