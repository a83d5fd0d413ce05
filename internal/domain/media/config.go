package media

// Config holds gateway domain configuration.
type Config struct {
	// Providers maps a provider id to its client configuration.
	Providers map[ProviderID]ClientConfig

	// StashTimedOut keeps timed-out and externally polled jobs in the task store.
	StashTimedOut bool
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() *Config {
	return &Config{
		Providers:     map[ProviderID]ClientConfig{},
		StashTimedOut: true,
	}
}
