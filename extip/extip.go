// Package extip resolves the host's external IP address through public echo
// services, caching the answer and falling back to the local outbound
// address when every service fails.
package extip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/iptvkit/metrics"
)

const (
	cacheKey       = "extip:external"
	defaultTTL     = time.Hour
	requestTimeout = 5 * time.Second
	maxBodySize    = 256
	loopback       = "127.0.0.1"
)

// DefaultEndpoints are queried in order until one answers with an address.
var DefaultEndpoints = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// Source tells where an answer came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Result is a resolved address.
type Result struct {
	IP     string
	Source Source
}

// Cache is the remember/forget collaborator.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (any, error)) (any, error)
	Forget(key string)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEndpoints replaces the echo services.
func WithEndpoints(endpoints ...string) Option {
	return func(r *Resolver) {
		if len(endpoints) > 0 {
			r.endpoints = endpoints
		}
	}
}

// WithTTL sets how long a remote answer is cached.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// withLocalAddr replaces the local fallback, for tests.
func withLocalAddr(fn func() string) Option {
	return func(r *Resolver) {
		r.localAddr = fn
	}
}

// Resolver looks up the external IP address.
type Resolver struct {
	cache      Cache
	endpoints  []string
	ttl        time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
	localAddr  func() string
}

// New creates a Resolver backed by cache.
func New(cache Cache, opts ...Option) *Resolver {
	r := &Resolver{
		cache:      cache,
		endpoints:  DefaultEndpoints,
		ttl:        defaultTTL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     zerolog.Nop(),
		localAddr:  localOutboundIP,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExternalIP returns the external address, or the local fallback.
func (r *Resolver) ExternalIP(ctx context.Context) (string, error) {
	res, err := r.Lookup(ctx)
	if err != nil {
		return "", err
	}
	return res.IP, nil
}

// Lookup returns the cached remote answer, queries the endpoints on a miss,
// and falls back to the local outbound address when all of them fail. The
// fallback is not cached so the next call tries the endpoints again.
func (r *Resolver) Lookup(ctx context.Context) (Result, error) {
	value, err := r.cache.Remember(ctx, cacheKey, r.ttl, func(ctx context.Context) (any, error) {
		return r.queryEndpoints(ctx)
	})
	if err == nil {
		if ip, ok := value.(string); ok {
			metrics.ExtIPLookups.WithLabelValues(string(SourceRemote)).Inc()
			return Result{IP: ip, Source: SourceRemote}, nil
		}
		err = fmt.Errorf("unexpected cached value %T", value)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	r.logger.Warn().Err(err).Msg("External IP lookup failed, using local address")
	metrics.ExtIPLookups.WithLabelValues(string(SourceLocal)).Inc()
	return Result{IP: r.localAddr(), Source: SourceLocal}, nil
}

// Forget drops the cached answer.
func (r *Resolver) Forget() {
	r.cache.Forget(cacheKey)
}

func (r *Resolver) queryEndpoints(ctx context.Context) (any, error) {
	var lastErr error
	for _, endpoint := range r.endpoints {
		ip, err := r.query(ctx, endpoint)
		if err == nil {
			r.logger.Debug().Str("endpoint", endpoint).Str("ip", ip).Msg("Resolved external IP")
			return ip, nil
		}
		r.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("External IP endpoint failed")
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no endpoints configured")
	}
	return nil, lastErr
}

func (r *Resolver) query(ctx context.Context, endpoint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid address %q", ip)
	}
	return ip, nil
}

// localOutboundIP returns the address of the interface used for outbound
// traffic. Dialing UDP sends no packets.
func localOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return loopback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return loopback
	}
	return addr.IP.String()
}
