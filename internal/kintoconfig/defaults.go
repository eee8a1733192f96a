package kintoconfig

// Default values for configuration options, used both as the starting
// point for TOML decoding and as the fallback when no config file exists.
const (
	defaultBaseURL   = "http://localhost:8888/v1"
	defaultBucket    = "default"
	defaultDBPath    = "kintosync.db"
	defaultStrategy  = "manual"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: defaultBaseURL,
		},
		Collection: CollectionConfig{
			Bucket: defaultBucket,
			DBPath: defaultDBPath,
		},
		Sync: SyncConfig{
			Strategy: defaultStrategy,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
