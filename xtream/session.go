package xtream

import (
	"fmt"
	"strings"
)

// Credentials are the connection parameters of an Xtream provider.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Playlist is the read-only view of a stored playlist record.
type Playlist interface {
	// IsXtream reports whether the playlist talks to an Xtream Codes provider
	IsXtream() bool
	// XtreamCredentials returns the provider connection parameters
	XtreamCredentials() Credentials
	// UserAgent returns the user agent the playlist requires, or ""
	UserAgent() string
}

// Source selects where session parameters come from. The only
// implementations are FromPlaylist and FromRawConfig.
type Source interface {
	isSource()
}

// FromPlaylist reads the session from a playlist record.
type FromPlaylist struct {
	Playlist Playlist
}

// FromRawConfig reads the session from a plain map with the keys
// "url", "username" and "password". Missing keys become "".
type FromRawConfig map[string]string

func (FromPlaylist) isSource()  {}
func (FromRawConfig) isSource() {}

// Session is the immutable configuration of one client.
type Session struct {
	serverBase  string
	username    string
	password    string
	retryLimit  int
	userAgent   string
	initialized bool
}

// NewSession resolves a Session from source. A playlist that is not an
// Xtream playlist yields ErrConfigurationMismatch; a nil source or a
// FromPlaylist without a playlist yields ErrMissingConfiguration.
// Missing credential fields are accepted as empty strings.
func NewSession(source Source, retryLimit int, fallbackUserAgent string) (Session, error) {
	var (
		creds     Credentials
		userAgent string
	)

	switch src := source.(type) {
	case FromPlaylist:
		if src.Playlist == nil {
			return Session{}, ErrMissingConfiguration
		}
		if !src.Playlist.IsXtream() {
			return Session{}, ErrConfigurationMismatch
		}
		creds = src.Playlist.XtreamCredentials()
		userAgent = src.Playlist.UserAgent()
	case FromRawConfig:
		if src == nil {
			return Session{}, ErrMissingConfiguration
		}
		creds = Credentials{
			URL:      src["url"],
			Username: src["username"],
			Password: src["password"],
		}
	default:
		return Session{}, ErrMissingConfiguration
	}

	if retryLimit <= 0 {
		retryLimit = DefaultRetryLimit
	}
	if userAgent == "" {
		userAgent = fallbackUserAgent
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return Session{
		serverBase:  normalizeServerBase(creds.URL),
		username:    creds.Username,
		password:    creds.Password,
		retryLimit:  retryLimit,
		userAgent:   userAgent,
		initialized: true,
	}, nil
}

// normalizeServerBase prepends http:// when no scheme is present and trims
// trailing slashes.
func normalizeServerBase(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return base
}

// ServerBase returns the scheme-qualified provider base URL.
func (s Session) ServerBase() string { return s.serverBase }

// Username returns the provider username.
func (s Session) Username() string { return s.username }

// RetryLimit returns the attempt budget of a call.
func (s Session) RetryLimit() int { return s.retryLimit }

// UserAgent returns the User-Agent header sent with every attempt.
func (s Session) UserAgent() string { return s.userAgent }

// String describes the session without the password.
func (s Session) String() string {
	return fmt.Sprintf("xtream session %s@%s (retries=%d)", s.username, safeHost(s.serverBase), s.retryLimit)
}
