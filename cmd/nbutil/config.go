package main

import (
	"net/url"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the nbutil configuration surface. Every field has a default, so
// running with no config file talks to a local MongoDB.
type Config struct {
	// StoreURI is the MongoDB connection string, credentials and database
	// name included.
	StoreURI string

	// DocumentCollection names the GridFS bucket holding document versions.
	DocumentCollection string

	// CheckpointCollection names the collection holding checkpoint records.
	CheckpointCollection string

	// CheckpointHistoryCollection is configured but not read by anything
	// yet; it is reserved for checkpoint history.
	CheckpointHistoryCollection string
}

func defaultConfig() Config {
	return Config{
		StoreURI:                    "mongodb://localhost:27017/",
		DocumentCollection:          "ipynb",
		CheckpointCollection:        "ipynb_checkpoints",
		CheckpointHistoryCollection: "ipynb_cphistory",
	}
}

// loadConfig returns the defaults overlaid with the given TOML file, if any.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}
	_, err := toml.DecodeFile(path, &config)
	return config, err
}

// databaseName extracts the database component of a MongoDB URI, defaulting
// to "ipython" when the URI names none.
func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "ipython"
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return "ipython"
	}
	return name
}
