// Package nbformat reads and writes notebook documents in their canonical
// JSON form. A notebook is kept as a generic JSON object so unknown fields
// survive a decode/encode round trip; the codec only checks the structural
// schema version and, on request, offers advisory validation.
package nbformat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Accepted major schema versions.
const (
	MinVersion = 3
	MaxVersion = 4
)

// ErrSchema means the bytes are not a recognizable notebook document:
// either not valid JSON, not an object, or an unsupported nbformat version.
var ErrSchema = errors.New("not a recognizable notebook")

// Notebook is a decoded notebook document. Field access goes through the
// underlying map so documents with fields this package does not know about
// are preserved byte-for-byte in meaning.
type Notebook map[string]interface{}

// Version returns the major schema version, or 0 if it is missing or not
// a number.
func (nb Notebook) Version() int {
	v, ok := nb["nbformat"].(float64)
	if !ok {
		return 0
	}
	return int(v)
}

// Decode parses data as a notebook document. It fails with ErrSchema when
// the JSON is malformed or the structural version is unrecognized.
func Decode(data []byte) (Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if nb == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrSchema)
	}
	v := nb.Version()
	if v < MinVersion || v > MaxVersion {
		return nil, fmt.Errorf("%w: unsupported nbformat version %d", ErrSchema, v)
	}
	return nb, nil
}

// Encode serializes nb as canonical JSON. Keys are emitted in sorted order
// at every nesting level, so encoding the same document always produces the
// same bytes. That keeps the stored version history reproducible and
// diffable.
func Encode(nb Notebook) ([]byte, error) {
	// encoding/json sorts map keys, which is exactly the canonical
	// ordering we need.
	data, err := json.Marshal(nb)
	if err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	return data, nil
}
