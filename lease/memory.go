package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memrec struct {
	token     string
	expiresAt time.Time
}

// Memory provides in-process lease coordination.
type Memory struct {
	mu     sync.Mutex
	leases map[string]memrec
}

var _ Manager = &Memory{}

// NewMemory creates a new in-process lease manager.
func NewMemory() *Memory {
	return &Memory{leases: make(map[string]memrec)}
}

// Acquire obtains the write lease for path, or fails with ErrConflict if an
// unexpired lease is already held.
func (m *Memory) Acquire(ctx context.Context, path string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.leases[path]; ok && now.Before(rec.expiresAt) {
		return nil, ErrConflict
	}
	token := uuid.NewString()
	expiresAt := now.Add(ttl)
	m.leases[path] = memrec{token: token, expiresAt: expiresAt}
	return &Lease{Path: path, Token: token, ExpiresAt: expiresAt}, nil
}

// Release frees the lease if l still owns it. Releasing a missing or
// foreign lease is a no-op.
func (m *Memory) Release(_ context.Context, l *Lease) error {
	if l == nil || l.Path == "" || l.Token == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.leases[l.Path]; ok && rec.token == l.Token {
		delete(m.leases, l.Path)
	}
	return nil
}
