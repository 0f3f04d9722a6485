package contents

import (
	"strings"
	"time"
)

// Document types.
const (
	TypeNotebook  = "notebook"
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Content formats. An empty format means "not set".
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatBase64 = "base64"
)

// Extension marks a path as holding a structured notebook document.
const Extension = ".ipynb"

// Model is the uniform response shape for every contents operation. It is a
// projection built fresh on each call; it is never stored. Content is nil
// when the caller did not ask for it. For a directory model, Content is a
// []*Model listing; for a notebook it is the decoded document.
type Model struct {
	Name         string      `json:"name"`
	Path         string      `json:"path"`
	Type         string      `json:"type"`
	Format       string      `json:"format,omitempty"`
	Mimetype     string      `json:"mimetype,omitempty"`
	Content      interface{} `json:"content"`
	Created      time.Time   `json:"created"`
	LastModified time.Time   `json:"last_modified"`
	Writable     bool        `json:"writable"`
	Message      string      `json:"message,omitempty"`
}

// Checkpoint is the caller-facing checkpoint projection.
type Checkpoint struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"last_modified"`
}

// baseModel builds the common base of a contents model.
func baseModel(path string) *Model {
	now := time.Now().UTC()
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	return &Model{
		Name:         name,
		Path:         path,
		Created:      now,
		LastModified: now,
		Writable:     true,
	}
}
