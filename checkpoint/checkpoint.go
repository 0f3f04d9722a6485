// Package checkpoint keeps the checkpoint bookkeeping for notebook documents.
// A checkpoint is a historical marker pointing at one stored version of a
// path. Records are append-only; they are never rewritten after creation.
package checkpoint

import (
	"context"
	"time"
)

// Record is one checkpoint entry for a path. Seq numbers count up from 0
// per path. VersionID names the blob version the checkpoint refers to.
type Record struct {
	Path      string
	Seq       int
	CreatedAt time.Time
	VersionID string
}

// Store holds checkpoint records.
//
// Create assigns Seq as the count of records already present for the path.
// This is a read-count-then-write pattern and is not atomic: two concurrent
// Create calls on the same path can assign duplicate or skipped sequence
// numbers. The write itself is an upsert keyed by the (path, seq, versionID)
// identity, so two racing creates that compute the same sequence number for
// the same version collapse into one record. Callers wanting strict
// sequencing must serialize per-path mutations themselves (see the lease
// package).
type Store interface {
	Create(ctx context.Context, path string, versionID string) (Record, error)

	// List returns the records for path in the order the backing store
	// returns them. In the presence of creation races this need not be
	// sorted by Seq.
	List(ctx context.Context, path string) ([]Record, error)

	// Retarget moves every record from oldPath to newPath. Used by rename.
	Retarget(ctx context.Context, oldPath, newPath string) error
}
