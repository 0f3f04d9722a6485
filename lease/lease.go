// Package lease provides a per-path write lease for hosts that want
// mutations on the same document serialized. The contents manager works
// without one, in which case the documented races around checkpoint
// numbering and rename stand; with a lease configured, only one writer per
// path is active at a time.
//
// Two implementations are provided: Memory, an in-process table suitable
// for single-process hosts and tests, and Redis, which coordinates writers
// across processes with SET NX and a token-checked release.
package lease

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long an abandoned lease can block other writers.
const DefaultTTL = 30 * time.Second

// ErrConflict means the lease for the path is already held.
var ErrConflict = errors.New("write lease conflict")

// A Lease is a held write lock on one path. The Token proves ownership on
// Release, so one writer cannot free another writer's lease.
type Lease struct {
	Path      string
	Token     string
	ExpiresAt time.Time
}

// Manager hands out per-path write leases. Acquire returns ErrConflict when
// the lease is already held. Release is best-effort and idempotent; it must
// be called on every exit path, or the lease blocks other writers until the
// TTL expires.
type Manager interface {
	Acquire(ctx context.Context, path string, ttl time.Duration) (*Lease, error)
	Release(ctx context.Context, l *Lease) error
}
