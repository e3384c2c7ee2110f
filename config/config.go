package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/s0up4200/iptvkit/xtream"
)

// EnvPrefix prefixes environment overrides, e.g. IPTVKIT_XTREAM_PASSWORD.
const EnvPrefix = "IPTVKIT"

// ErrPlaylistNotFound is returned by Playlist for an unknown name
var ErrPlaylistNotFound = errors.New("playlist not found")

// Load loads the configuration from file and environment. Without an
// explicit path a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".iptvkit"))
		}

		v.AddConfigPath("/etc/iptvkit/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Xtream defaults; empty keys are registered so environment overrides apply
	v.SetDefault("xtream.url", "")
	v.SetDefault("xtream.username", "")
	v.SetDefault("xtream.password", "")
	v.SetDefault("xtream.retry_limit", xtream.DefaultRetryLimit)
	v.SetDefault("xtream.user_agent", "")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", time.Hour)

	// External IP defaults
	v.SetDefault("ip.endpoints", []string{
		"https://api.ipify.org",
		"https://ifconfig.me/ip",
		"https://icanhazip.com",
	})
	v.SetDefault("ip.ttl", time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("metrics.textfile", "")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Xtream.RetryLimit < 0 {
		return fmt.Errorf("xtream.retry_limit must not be negative")
	}

	seen := make(map[string]bool, len(cfg.Playlists))
	for i, p := range cfg.Playlists {
		if p.Name == "" {
			return fmt.Errorf("playlists[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate playlist name: %s", p.Name)
		}
		seen[p.Name] = true

		if p.Type != PlaylistTypeXtream && p.Type != PlaylistTypeM3U {
			return fmt.Errorf("invalid type for playlist %s: %q (must be %s or %s)", p.Name, p.Type, PlaylistTypeXtream, PlaylistTypeM3U)
		}
	}

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter %s has an empty expression", name)
		}
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if cfg.IP.TTL < 0 {
		return fmt.Errorf("ip.ttl must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// Playlist returns the playlist called name
func (c *Config) Playlist(name string) (PlaylistConfig, error) {
	for _, p := range c.Playlists {
		if p.Name == name {
			return p, nil
		}
	}
	return PlaylistConfig{}, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
}

// Filter resolves a --filter argument: the name of a configured filter or
// an inline expression.
func (c *Config) Filter(nameOrExpression string) string {
	if expression, ok := c.Filters[nameOrExpression]; ok {
		return expression
	}
	return nameOrExpression
}
