package xtream

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRetryLimit is the attempt budget of a call.
	DefaultRetryLimit = 5
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryDelay is the fixed pause between two attempts.
	DefaultRetryDelay = 1 * time.Second
	// DefaultUserAgent is sent when no playlist supplies a user agent.
	DefaultUserAgent = "iptvkit/1.0"
)

// Delayer waits d between two attempts. It must return early with ctx.Err()
// when ctx is done.
type Delayer func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	retryLimit int
	timeout    time.Duration
	retryDelay time.Duration
	userAgent  string
	httpClient *http.Client
	delay      Delayer
	logger     zerolog.Logger
}

func defaultOptions() clientOptions {
	return clientOptions{
		retryLimit: DefaultRetryLimit,
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		userAgent:  DefaultUserAgent,
		delay:      sleepWithContext,
		logger:     zerolog.Nop(),
	}
}

// WithRetryLimit overrides the attempt budget. Values <= 0 keep the default.
func WithRetryLimit(limit int) Option {
	return func(o *clientOptions) {
		if limit > 0 {
			o.retryLimit = limit
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithRetryDelay sets the delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *clientOptions) {
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithUserAgent sets the user agent used when the playlist has none.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout is left untouched;
// the per-attempt timeout is applied through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithDelayer replaces the wait between attempts.
func WithDelayer(delay Delayer) Option {
	return func(o *clientOptions) {
		if delay != nil {
			o.delay = delay
		}
	}
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// sleepWithContext sleeps for the given duration, returning early if the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
