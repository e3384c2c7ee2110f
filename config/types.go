package config

import (
	"time"

	"github.com/s0up4200/iptvkit/xtream"
)

// Config represents the complete configuration structure
type Config struct {
	Xtream    XtreamConfig     `mapstructure:"xtream"`
	Playlists []PlaylistConfig `mapstructure:"playlists"`
	Filters   FilterConfig     `mapstructure:"filters"`
	Cache     CacheConfig      `mapstructure:"cache"`
	IP        IPConfig         `mapstructure:"ip"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

// XtreamConfig holds the raw provider connection used when no playlist is selected
type XtreamConfig struct {
	URL        string `mapstructure:"url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	RetryLimit int    `mapstructure:"retry_limit"`
	UserAgent  string `mapstructure:"user_agent"`
}

// Source returns the raw configuration source, or nil when no connection
// field is set.
func (x XtreamConfig) Source() xtream.Source {
	if x.URL == "" && x.Username == "" && x.Password == "" {
		return nil
	}
	return xtream.FromRawConfig{
		"url":      x.URL,
		"username": x.Username,
		"password": x.Password,
	}
}

// Playlist types
const (
	PlaylistTypeXtream = "xtream"
	PlaylistTypeM3U    = "m3u"
)

// PlaylistConfig is a stored playlist record
type PlaylistConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Agent    string `mapstructure:"user_agent"`
}

// IsXtream reports whether the playlist is an Xtream Codes playlist
func (p PlaylistConfig) IsXtream() bool {
	return p.Type == PlaylistTypeXtream
}

// XtreamCredentials returns the provider connection parameters
func (p PlaylistConfig) XtreamCredentials() xtream.Credentials {
	return xtream.Credentials{
		URL:      p.URL,
		Username: p.Username,
		Password: p.Password,
	}
}

// UserAgent returns the user agent the playlist requires
func (p PlaylistConfig) UserAgent() string {
	return p.Agent
}

var _ xtream.Playlist = PlaylistConfig{}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// CacheConfig controls caching of provider listings
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// IPConfig controls external IP lookups
type IPConfig struct {
	Endpoints []string      `mapstructure:"endpoints"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// MetricsConfig controls the prometheus textfile written on exit
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}
