package config

import (
	"fmt"
	"os"
)

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSecure = "secure"
)

type Config struct {
	Backend     string
	DBFile      string
	DataDir     string
	Passphrase  string
	AvatarsPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Backend:     getEnv("PEREPISKA_BACKEND", BackendBolt),
		DBFile:      getEnv("PEREPISKA_DB", "perepiska.db"),
		DataDir:     getEnv("PEREPISKA_DIR", "perepiska-data"),
		Passphrase:  os.Getenv("PEREPISKA_PASSPHRASE"),
		AvatarsPath: getEnv("PEREPISKA_AVATARS", "avatars"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBolt, BackendSecure:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)",
			c.Backend, BackendMemory, BackendBolt, BackendSecure)
	}

	if c.Backend == BackendSecure && c.Passphrase == "" {
		return fmt.Errorf("PEREPISKA_PASSPHRASE is required for the %s backend", BackendSecure)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
