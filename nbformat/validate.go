package nbformat

import (
	"fmt"

	"github.com/antonholmquist/jason"
)

// Validate checks the structural invariants of an encoded notebook and
// returns an advisory message describing the first nonconformance found, or
// "" when the document looks clean. Nonconformance is never an error here;
// documents with minor defects are still accepted and stored.
func Validate(data []byte) string {
	doc, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return fmt.Sprintf("notebook is not a JSON object: %v", err)
	}
	version, err := doc.GetInt64("nbformat")
	if err != nil {
		return "notebook is missing the nbformat field"
	}
	if _, err := doc.GetInt64("nbformat_minor"); err != nil {
		return "notebook is missing the nbformat_minor field"
	}
	if _, err := doc.GetObject("metadata"); err != nil {
		return "notebook is missing the metadata object"
	}
	if version < 4 {
		// v3 keeps cells inside worksheets
		if _, err := doc.GetObjectArray("worksheets"); err != nil {
			return "v3 notebook is missing the worksheets list"
		}
		return ""
	}
	cells, err := doc.GetObjectArray("cells")
	if err != nil {
		return "notebook is missing the cells list"
	}
	for i, cell := range cells {
		if _, err := cell.GetString("cell_type"); err != nil {
			return fmt.Sprintf("cell %d has no cell_type", i)
		}
		if _, err := cell.GetString("source"); err != nil {
			// multiline sources are a list of strings
			if _, err := cell.GetStringArray("source"); err != nil {
				return fmt.Sprintf("cell %d has no source", i)
			}
		}
	}
	return ""
}
