// Package contents implements the notebook contents manager: a stateless
// orchestrator mapping the uniform contents API (exists, get, save, rename,
// delete, checkpoints) onto a versioned blob store and a checkpoint store.
//
// The namespace is flat. A "directory" exists only as the synthetic root
// listing; a separator inside a path is just part of the key.
package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/golang/groupcache/singleflight"

	"github.com/gridbook/gridbook/checkpoint"
	"github.com/gridbook/gridbook/lease"
	"github.com/gridbook/gridbook/nbformat"
	"github.com/gridbook/gridbook/store"
)

// Manager orchestrates the blob store and the checkpoint store. It holds no
// persisted state of its own; both stores share one backing-store connection
// created by the host at construction time.
//
// Without a lease manager, concurrent mutations on the same path can race in
// two known ways: checkpoint sequence numbers are count-then-insert, and
// rename's write-then-delete is not transactional. Configuring a lease via
// NewWithLease serializes per-path mutations instead.
type Manager struct {
	blobs       store.Store
	checkpoints checkpoint.Store
	leases      lease.Manager // nil means legacy racy semantics
	leaseTTL    time.Duration
	listing     singleflight.Group // dedups concurrent root listings
}

// New creates a Manager over the given stores.
func New(blobs store.Store, checkpoints checkpoint.Store) *Manager {
	return &Manager{blobs: blobs, checkpoints: checkpoints}
}

// NewWithLease creates a Manager that acquires a per-path write lease
// around save, rename and checkpoint creation.
func NewWithLease(blobs store.Store, checkpoints checkpoint.Store, leases lease.Manager) *Manager {
	return &Manager{
		blobs:       blobs,
		checkpoints: checkpoints,
		leases:      leases,
		leaseTTL:    lease.DefaultTTL,
	}
}

// normalize strips the separators a host may pass around a logical path.
func normalize(path string) string {
	return strings.Trim(path, "/")
}

// Exists reports whether path points at something retrievable. The root
// path always exists, as a directory.
func (m *Manager) Exists(ctx context.Context, path string) (bool, error) {
	path = normalize(path)
	if path == "" {
		return true, nil
	}
	ok, err := m.blobs.Exists(ctx, path)
	if err != nil {
		return false, &Error{Kind: Storage, Path: path, Err: err}
	}
	return ok, nil
}

// Get returns the model for path. When content is true the notebook body
// (or the full root listing) is included. expectedType, when non-empty,
// must match what the path holds.
func (m *Manager) Get(ctx context.Context, path string, content bool, expectedType string) (*Model, error) {
	path = normalize(path)
	ok, err := m.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(path)
	}

	switch {
	case path == "":
		if expectedType != "" && expectedType != TypeDirectory {
			return nil, badRequest(path, "the root is a directory, not a %s", expectedType)
		}
		return m.dirModel(ctx, content)
	case expectedType == TypeNotebook || (expectedType == "" && strings.HasSuffix(path, Extension)):
		return m.notebookModel(ctx, path, content)
	default:
		// Plain files can be saved but not retrieved through this path.
		return nil, badRequest(path, "%s is not a notebook", path)
	}
}

// dirModel builds the synthetic root directory model. With content
// requested, it lists every key in the store and builds a model per key,
// propagating the content flag. That is a full-store scan per listing;
// concurrent identical listings are collapsed into one.
func (m *Manager) dirModel(ctx context.Context, content bool) (*Model, error) {
	model := baseModel("")
	model.Type = TypeDirectory
	if !content {
		return model, nil
	}
	key := "root:content"
	v, err := m.listing.Do(key, func() (interface{}, error) {
		keys, err := m.blobs.ListKeys(ctx)
		if err != nil {
			return nil, &Error{Kind: Storage, Path: "", Err: err}
		}
		entries := make([]*Model, 0, len(keys))
		for _, k := range keys {
			entry, err := m.Get(ctx, k, content, "")
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	model.Content = v.([]*Model)
	model.Format = FormatJSON
	return model, nil
}

// notebookModel builds a notebook model, decoding the latest stored version
// when content is requested.
func (m *Manager) notebookModel(ctx context.Context, path string, content bool) (*Model, error) {
	model := baseModel(path)
	model.Type = TypeNotebook
	if !content {
		return model, nil
	}
	v, err := m.blobs.Latest(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(path)
		}
		return nil, &Error{Kind: Storage, Path: path, Err: err}
	}
	data, err := m.blobs.Read(ctx, path, v.ID)
	if err != nil {
		return nil, &Error{Kind: Storage, Path: path, Err: err}
	}
	nb, err := nbformat.Decode(data)
	if err != nil {
		return nil, &Error{Kind: Schema, Path: path, Err: err}
	}
	markTrusted(nb)
	model.Content = nb
	model.Format = FormatJSON
	model.Created = v.CreatedAt
	model.LastModified = v.CreatedAt
	model.Message = nbformat.Validate(data)
	return model, nil
}

// markTrusted marks every code cell as trusted. Content served from the
// store was signed on the way in by check-and-sign, so it is trusted on the
// way out.
func markTrusted(nb nbformat.Notebook) {
	cells, ok := nb["cells"].([]interface{})
	if !ok {
		return
	}
	for _, c := range cells {
		cell, ok := c.(map[string]interface{})
		if !ok || cell["cell_type"] != "code" {
			continue
		}
		meta, ok := cell["metadata"].(map[string]interface{})
		if !ok {
			meta = make(map[string]interface{})
			cell["metadata"] = meta
		}
		meta["trusted"] = true
	}
}

// Save stores model at path and returns a metadata-only model of the saved
// document, with any advisory validation message attached.
func (m *Manager) Save(ctx context.Context, model *Model, path string) (*Model, error) {
	path = normalize(path)
	if model == nil || model.Type == "" {
		return nil, badRequest(path, "no file type provided")
	}
	if model.Content == nil && model.Type != TypeDirectory {
		return nil, badRequest(path, "no file content provided")
	}

	var saved *Model
	err := m.withLease(ctx, path, func() error {
		var err error
		saved, err = m.save(ctx, model, path)
		return err
	})
	return saved, err
}

func (m *Manager) save(ctx context.Context, model *Model, path string) (*Model, error) {
	// One checkpoint should always exist: capture the pre-save state
	// before it is buried by the new version.
	ok, err := m.blobs.Exists(ctx, path)
	if err != nil {
		return nil, &Error{Kind: Storage, Path: path, Err: err}
	}
	if ok {
		records, err := m.checkpoints.List(ctx, path)
		if err != nil {
			return nil, &Error{Kind: Storage, Path: path, Err: err}
		}
		if len(records) == 0 {
			if _, err := m.createCheckpoint(ctx, path); err != nil {
				return nil, err
			}
		}
	}

	log.Println("contents: saving", path)

	var message string
	switch model.Type {
	case TypeNotebook:
		message, err = m.saveNotebook(ctx, model, path)
	case TypeFile:
		err = m.saveFile(ctx, model, path)
	case TypeDirectory:
		// No blob-level representation exists for directories; hosts
		// that need them must provide their own handling.
		err = badRequest(path, "directory save is not supported by this store")
	default:
		err = badRequest(path, "unhandled contents type: %s", model.Type)
	}
	if err != nil {
		return nil, err
	}

	// One checkpoint should always exist once a path has been saved. On a
	// fresh path the pre-save branch had nothing to capture, so checkpoint
	// 0 references the state just written.
	records, err := m.checkpoints.List(ctx, path)
	if err != nil {
		return nil, &Error{Kind: Storage, Path: path, Err: err}
	}
	if len(records) == 0 {
		if _, err := m.createCheckpoint(ctx, path); err != nil {
			return nil, err
		}
	}

	saved := baseModel(path)
	saved.Type = model.Type
	if v, err := m.blobs.Latest(ctx, path); err == nil {
		saved.Created = v.CreatedAt
		saved.LastModified = v.CreatedAt
	}
	saved.Message = message
	return saved, nil
}

func (m *Manager) saveNotebook(ctx context.Context, model *Model, path string) (string, error) {
	raw, err := json.Marshal(model.Content)
	if err != nil {
		return "", badRequest(path, "notebook content is not serializable: %v", err)
	}
	nb, err := nbformat.Decode(raw)
	if err != nil {
		return "", badRequest(path, "%v", err)
	}
	data, err := nbformat.Encode(nb)
	if err != nil {
		return "", badRequest(path, "%v", err)
	}
	if _, err := m.blobs.Put(ctx, path, data); err != nil {
		return "", &Error{Kind: Storage, Path: path, Err: fmt.Errorf("save failed: %w", err)}
	}
	return nbformat.Validate(data), nil
}

// saveFile persists an opaque file exactly as handed in. The declared
// format must be text or base64; the bytes are stored as given, with no
// decoding.
func (m *Manager) saveFile(ctx context.Context, model *Model, path string) error {
	body, ok := model.Content.(string)
	if !ok {
		return badRequest(path, "file content must be a string")
	}
	switch model.Format {
	case FormatText, FormatBase64:
	default:
		return badRequest(path, "must specify format of file contents as 'text' or 'base64'")
	}
	if _, err := m.blobs.Put(ctx, path, []byte(body)); err != nil {
		return &Error{Kind: Storage, Path: path, Err: fmt.Errorf("save failed: %w", err)}
	}
	return nil
}

// Rename moves the document and its checkpoints from oldPath to newPath.
// It fails with Conflict when newPath already holds a document. The write
// to newPath and the delete of oldPath are two separate store operations; a
// crash in between leaves both paths populated.
func (m *Manager) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPath = normalize(oldPath)
	newPath = normalize(newPath)
	if oldPath == newPath {
		return nil
	}
	return m.withLease(ctx, oldPath, func() error {
		return m.rename(ctx, oldPath, newPath)
	})
}

func (m *Manager) rename(ctx context.Context, oldPath, newPath string) error {
	ok, err := m.blobs.Exists(ctx, newPath)
	if err != nil {
		return &Error{Kind: Storage, Path: newPath, Err: err}
	}
	if ok {
		return &Error{Kind: Conflict, Path: newPath, Err: errors.New("document already exists")}
	}

	v, err := m.blobs.Latest(ctx, oldPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(oldPath)
		}
		return &Error{Kind: Storage, Path: oldPath, Err: fmt.Errorf("rename failed: %w", err)}
	}
	data, err := m.blobs.Read(ctx, oldPath, v.ID)
	if err != nil {
		return &Error{Kind: Storage, Path: oldPath, Err: fmt.Errorf("rename failed: %w", err)}
	}
	// Re-encode through the codec so the copy at newPath is canonical.
	nb, err := nbformat.Decode(data)
	if err == nil {
		data, err = nbformat.Encode(nb)
	}
	if err != nil {
		return &Error{Kind: Storage, Path: oldPath, Err: fmt.Errorf("rename failed: %w", err)}
	}
	if _, err := m.blobs.Put(ctx, newPath, data); err != nil {
		return &Error{Kind: Storage, Path: newPath, Err: fmt.Errorf("rename failed: %w", err)}
	}
	if err := m.delete(ctx, oldPath); err != nil {
		return err
	}
	if err := m.checkpoints.Retarget(ctx, oldPath, newPath); err != nil {
		return &Error{Kind: Storage, Path: oldPath, Err: err}
	}
	return nil
}

// Delete removes every stored version of path. Deleting a path that does
// not exist is a silent no-op, not an error. Checkpoint records are left
// behind.
func (m *Manager) Delete(ctx context.Context, path string) error {
	return m.delete(ctx, normalize(path))
}

func (m *Manager) delete(ctx context.Context, path string) error {
	ok, err := m.blobs.Exists(ctx, path)
	if err != nil {
		return &Error{Kind: Storage, Path: path, Err: err}
	}
	if !ok {
		return nil
	}
	if err := m.blobs.DeleteAll(ctx, path); err != nil {
		return &Error{Kind: Storage, Path: path, Err: err}
	}
	return nil
}

// CreateCheckpoint records a checkpoint referencing the latest stored
// version of path.
func (m *Manager) CreateCheckpoint(ctx context.Context, path string) (Checkpoint, error) {
	path = normalize(path)
	var cp Checkpoint
	err := m.withLease(ctx, path, func() error {
		var err error
		cp, err = m.createCheckpoint(ctx, path)
		return err
	})
	return cp, err
}

func (m *Manager) createCheckpoint(ctx context.Context, path string) (Checkpoint, error) {
	v, err := m.blobs.Latest(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Checkpoint{}, notFound(path)
		}
		return Checkpoint{}, &Error{Kind: Storage, Path: path, Err: err}
	}
	log.Println("contents: saving checkpoint for", path)
	rec, err := m.checkpoints.Create(ctx, path, v.ID)
	if err != nil {
		return Checkpoint{}, &Error{Kind: Storage, Path: path, Err: err}
	}
	return Checkpoint{ID: strconv.Itoa(rec.Seq), LastModified: rec.CreatedAt}, nil
}

// ListCheckpoints returns the checkpoint projections for path.
func (m *Manager) ListCheckpoints(ctx context.Context, path string) ([]Checkpoint, error) {
	path = normalize(path)
	records, err := m.checkpoints.List(ctx, path)
	if err != nil {
		return nil, &Error{Kind: Storage, Path: path, Err: err}
	}
	checkpoints := make([]Checkpoint, 0, len(records))
	for _, r := range records {
		checkpoints = append(checkpoints, Checkpoint{
			ID:           strconv.Itoa(r.Seq),
			LastModified: r.CreatedAt,
		})
	}
	return checkpoints, nil
}

// withLease runs fn holding the path's write lease when a lease manager is
// configured, and bare otherwise.
func (m *Manager) withLease(ctx context.Context, path string, fn func() error) error {
	if m.leases == nil {
		return fn()
	}
	l, err := m.leases.Acquire(ctx, path, m.leaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrConflict) {
			return &Error{Kind: Conflict, Path: path, Err: err}
		}
		return &Error{Kind: Storage, Path: path, Err: err}
	}
	defer func() {
		if err := m.leases.Release(ctx, l); err != nil {
			log.Println("contents: lease release", path, err)
		}
	}()
	return fn()
}
