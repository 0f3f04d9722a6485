// Package store provides a goroutine safe, versioned key-value interface for
// notebook documents. Keys are logical paths in a flat namespace. Every save
// appends a new immutable version under the key; versions are only removed
// all at once, by deleting the key's entire history.
//
// The most important implementation is the GridFS store. The Memory and S3
// stores are useful for testing or other specialized situations.
package store

import (
	"context"
	"errors"
	"time"
)

// Version records the metadata for one stored revision of a path. The ID is
// an opaque identifier assigned by the backing store; callers pass it back to
// Read to retrieve that revision's bytes.
type Version struct {
	ID        string
	Path      string
	Size      int64
	CreatedAt time.Time
}

var (
	// ErrNotFound means the path has no stored version.
	ErrNotFound = errors.New("no version for path")

	// ErrNoVersion means the given version id does not exist under the path.
	ErrNoVersion = errors.New("no such version")
)

// Store is the versioned blob store backing the contents manager.
//
// Put always appends; it never overwrites an earlier version. Latest returns
// the metadata of the most recently created version, and fails with
// ErrNotFound if the path has never been saved. DeleteAll removes every
// version of a path together; it is not guaranteed to be a no-op on an absent
// path, so callers should check Exists first.
//
// Implementations do no caching. Every call is a round trip to the backing
// store, so read-your-writes behavior is whatever the backing store provides.
type Store interface {
	// Exists reports whether at least one version is stored for path.
	// The empty path never exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Put appends a new version holding data under path.
	Put(ctx context.Context, path string, data []byte) (Version, error)

	// Latest returns the most recently created version of path.
	Latest(ctx context.Context, path string) (Version, error)

	// Read returns the bytes of the version with the given id under path.
	Read(ctx context.Context, path string, versionID string) ([]byte, error)

	// ListKeys returns every distinct path with at least one version.
	ListKeys(ctx context.Context) ([]string, error)

	// DeleteAll removes every version of path.
	DeleteAll(ctx context.Context, path string) error
}
