package kintoconfig

import "fmt"

// Validate checks a Config for the minimum viable settings to construct a
// Collection: a server URL, a collection name, and a recognized strategy.
func Validate(cfg *Config) error {
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("kintoconfig: server.base_url must not be empty")
	}

	if cfg.Collection.Name == "" {
		return fmt.Errorf("kintoconfig: collection.name must not be empty")
	}

	switch cfg.Sync.Strategy {
	case "manual", "client_wins", "server_wins":
	default:
		return fmt.Errorf("kintoconfig: sync.strategy %q is not one of manual, client_wins, server_wins", cfg.Sync.Strategy)
	}

	return nil
}
