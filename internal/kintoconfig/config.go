// Package kintoconfig implements TOML configuration loading for the
// kintosync CLI: server connection, collection identity, sync strategy,
// and credentials, laid out as one struct per concern plus a defaults
// layer.
package kintoconfig

// Config is the top-level configuration structure for a single
// bucket/collection pairing.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Collection CollectionConfig `toml:"collection"`
	Sync       SyncConfig       `toml:"sync"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig describes how to reach the Kinto server.
type ServerConfig struct {
	BaseURL         string `toml:"base_url"`
	CredentialsFile string `toml:"credentials_file"`
}

// CollectionConfig identifies the bucket/collection this client syncs and
// where to keep its local store.
type CollectionConfig struct {
	Bucket string `toml:"bucket"`
	Name   string `toml:"name"`
	DBPath string `toml:"db_path"`
}

// SyncConfig controls the sync engine's conflict behavior.
type SyncConfig struct {
	Strategy string `toml:"strategy"` // "manual", "client_wins", "server_wins"
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`  // slog level name: debug, info, warn, error
	Format string `toml:"format"` // "text" or "json"
}
