package contents

import (
	"errors"
	"fmt"
)

// Kind classifies a contents error so the host can translate it into its
// own transport-level representation.
type Kind int

const (
	// NotFound means the path has no stored version.
	NotFound Kind = iota + 1
	// BadRequest means the caller's input was malformed: a missing model
	// field, an unsupported type, or a retrieval-type mismatch.
	BadRequest
	// Conflict means a rename target already exists, or a write lease on
	// the path is held elsewhere.
	Conflict
	// Storage means an I/O failure against the backing store.
	Storage
	// Schema means a stored document failed to decode.
	Schema
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case BadRequest:
		return "bad request"
	case Conflict:
		return "conflict"
	case Storage:
		return "storage failure"
	case Schema:
		return "schema error"
	}
	return "unknown"
}

// Error is the failure type returned by every Manager operation. It carries
// a machine-checkable Kind, the offending path, and the underlying cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a contents Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsNotFound reports whether err is a NotFound contents error.
func IsNotFound(err error) bool { return IsKind(err, NotFound) }

// IsBadRequest reports whether err is a BadRequest contents error.
func IsBadRequest(err error) bool { return IsKind(err, BadRequest) }

// IsConflict reports whether err is a Conflict contents error.
func IsConflict(err error) bool { return IsKind(err, Conflict) }

func notFound(path string) error {
	return &Error{Kind: NotFound, Path: path, Err: errors.New("no such file or directory")}
}

func badRequest(path, format string, args ...interface{}) error {
	return &Error{Kind: BadRequest, Path: path, Err: fmt.Errorf(format, args...)}
}
