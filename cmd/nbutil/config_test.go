package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017/", config.StoreURI)
	assert.Equal(t, "ipynb", config.DocumentCollection)
	assert.Equal(t, "ipynb_checkpoints", config.CheckpointCollection)
	assert.Equal(t, "ipynb_cphistory", config.CheckpointHistoryCollection)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nbutil.toml")
	err := os.WriteFile(path, []byte(`
StoreURI = "mongodb://db.example.com:27017/notebooks"
DocumentCollection = "docs"
`), 0644)
	require.NoError(t, err)

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db.example.com:27017/notebooks", config.StoreURI)
	assert.Equal(t, "docs", config.DocumentCollection)
	// untouched fields keep their defaults
	assert.Equal(t, "ipynb_checkpoints", config.CheckpointCollection)
}

func TestDatabaseName(t *testing.T) {
	table := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/", "ipython"},
		{"mongodb://localhost:27017", "ipython"},
		{"mongodb://localhost:27017/notebooks", "notebooks"},
		{"mongodb://user:pw@db.example.com:27017/prod?authSource=admin", "prod"},
		{"not a uri at all" + string(rune(0x7f)), "ipython"},
	}
	for _, tab := range table {
		if got := databaseName(tab.uri); got != tab.want {
			t.Errorf("databaseName(%q) = %q, want %q", tab.uri, got, tab.want)
		}
	}
}
