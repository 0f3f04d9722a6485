package nbformat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbook/gridbook/nbformat"
)

const minimal = `{"cells":[],"metadata":{},"nbformat":4,"nbformat_minor":5}`

func TestDecode(t *testing.T) {
	nb, err := nbformat.Decode([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, 4, nb.Version())
}

func TestDecodeRejects(t *testing.T) {
	table := []struct {
		name  string
		input string
	}{
		{"malformed", `{"cells":`},
		{"null", `null`},
		{"array", `[1,2,3]`},
		{"no version", `{"cells":[]}`},
		{"future version", `{"nbformat":9,"cells":[]}`},
		{"ancient version", `{"nbformat":2}`},
	}
	for _, tab := range table {
		t.Run(tab.name, func(t *testing.T) {
			_, err := nbformat.Decode([]byte(tab.input))
			assert.ErrorIs(t, err, nbformat.ErrSchema)
		})
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	// two spellings of the same document
	a, err := nbformat.Decode([]byte(`{"nbformat":4,"nbformat_minor":5,"metadata":{},"cells":[]}`))
	require.NoError(t, err)
	b, err := nbformat.Decode([]byte(minimal))
	require.NoError(t, err)

	ea, err := nbformat.Encode(a)
	require.NoError(t, err)
	eb, err := nbformat.Encode(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)

	// keys come out sorted
	assert.Equal(t, minimal, string(ea))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	input := `{"nbformat":4,"nbformat_minor":5,"metadata":{"kernelspec":{"name":"python3"}},` +
		`"cells":[{"cell_type":"code","source":"print(1)","outputs":[],"metadata":{},"execution_count":null}],` +
		`"x_custom":{"z":1,"a":2}}`
	nb, err := nbformat.Decode([]byte(input))
	require.NoError(t, err)
	encoded, err := nbformat.Encode(nb)
	require.NoError(t, err)
	again, err := nbformat.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, nb, again)
}

func TestValidate(t *testing.T) {
	table := []struct {
		name    string
		input   string
		message string
	}{
		{"clean", minimal, ""},
		{"clean with cells", `{"cells":[{"cell_type":"code","source":["a\n","b"]}],` +
			`"metadata":{},"nbformat":4,"nbformat_minor":5}`, ""},
		{"no metadata", `{"cells":[],"nbformat":4,"nbformat_minor":5}`,
			"notebook is missing the metadata object"},
		{"no cells", `{"metadata":{},"nbformat":4,"nbformat_minor":5}`,
			"notebook is missing the cells list"},
		{"no minor", `{"cells":[],"metadata":{},"nbformat":4}`,
			"notebook is missing the nbformat_minor field"},
		{"bad cell", `{"cells":[{"source":"x"}],"metadata":{},"nbformat":4,"nbformat_minor":5}`,
			"cell 0 has no cell_type"},
		{"v3 without worksheets", `{"metadata":{},"nbformat":3,"nbformat_minor":0}`,
			"v3 notebook is missing the worksheets list"},
		{"v3 with worksheets", `{"metadata":{},"nbformat":3,"nbformat_minor":0,"worksheets":[]}`, ""},
	}
	for _, tab := range table {
		t.Run(tab.name, func(t *testing.T) {
			assert.Equal(t, tab.message, nbformat.Validate([]byte(tab.input)))
		})
	}
}
