// Package config provides configuration management for the configx CLI.
//
// Values are layered, lowest to highest priority: built-in defaults, the
// configx.yaml file, CONFIGX_* environment variables, and flags set on the
// command line.
package config

// Config holds all CLI configuration options.
type Config struct {
	SnapshotPath    string `koanf:"snapshot"`
	WALPath         string `koanf:"wal"`
	Sync            string `koanf:"sync"`
	CheckpointEvery int    `koanf:"checkpoint_every"`
	LogLevel        string `koanf:"log_level"`
	OutputFormat    string `koanf:"output"`
	HistoryFile     string `koanf:"history_file"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultSnapshotFile    = ".configx/config.snapshot"
	DefaultWALFile         = ".configx/config.wal"
	DefaultSync            = "always"
	DefaultCheckpointEvery = 1000
	DefaultLogLevel        = "warn"
	DefaultOutput          = "auto" // text on a TTY, json otherwise
)

// configFileNames are searched in the working directory when no config
// file is given explicitly.
var configFileNames = []string{"configx.yaml", "configx.yml"}

// EnvPrefix is the prefix of environment variables read by the loader.
const EnvPrefix = "CONFIGX_"
