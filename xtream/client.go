package xtream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/s0up4200/iptvkit/metrics"
)

// maxErrorBodySize limits how much of a failed response body is kept
const maxErrorBodySize = 64 * 1024

// Payload is a decoded provider response: map[string]any, []any, a scalar,
// or nil for an empty body.
type Payload = any

// Client talks to one Xtream Codes provider.
type Client struct {
	session    Session
	httpClient *http.Client
	timeout    time.Duration
	retryDelay time.Duration
	delay      Delayer
	logger     zerolog.Logger
}

// New initializes a client from source. No network call is made; use
// Authenticate to check the credentials.
func New(source Source, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	session, err := NewSession(source, o.retryLimit, o.userAgent)
	if err != nil {
		return nil, err
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		session:    session,
		httpClient: httpClient,
		timeout:    o.timeout,
		retryDelay: o.retryDelay,
		delay:      o.delay,
		logger:     o.logger.With().Str("component", "xtream").Str("host", safeHost(session.serverBase)).Logger(),
	}, nil
}

// Session returns the client's session.
func (c *Client) Session() Session {
	return c.session
}

// attemptOutcome is the result of one attempt, carried forward so the
// failure reported at exhaustion is always the last one observed.
type attemptOutcome struct {
	payload Payload
	status  int
	err     error
}

func (o attemptOutcome) ok() bool {
	return o.err == nil
}

// Call GETs rawURL, retrying failed attempts up to the session's retry
// limit with a fixed delay between attempts. No delay follows the final
// attempt. Every failure is a *RetryError wrapping the last attempt's
// failure: exhaustion, a 2xx body that is not JSON (not retried), or the
// context ending the call (Cause holds ctx.Err()).
func (c *Client) Call(ctx context.Context, rawURL string) (Payload, error) {
	if c == nil || !c.session.initialized {
		return nil, ErrNotInitialized
	}
	return c.call(ctx, actionOf(rawURL), rawURL)
}

func (c *Client) call(ctx context.Context, action, rawURL string) (Payload, error) {
	limit := c.session.retryLimit
	var last attemptOutcome

	for attempts := 0; attempts < limit; {
		if err := ctx.Err(); err != nil {
			return nil, c.canceled(action, attempts, last.err, err)
		}

		last = c.attempt(ctx, rawURL)
		attempts++

		if last.ok() {
			metrics.XtreamAttempts.WithLabelValues(action, "success").Inc()
			return last.payload, nil
		}

		var payloadErr *PayloadError
		if errors.As(last.err, &payloadErr) {
			metrics.XtreamAttempts.WithLabelValues(action, "payload").Inc()
			c.logger.Error().
				Err(last.err).
				Str("action", action).
				Int("attempt", attempts).
				Msg("Xtream response is not JSON")
			return nil, &RetryError{Action: action, Attempts: attempts, Last: last.err}
		}

		outcome := "upstream"
		var transportErr *TransportError
		if errors.As(last.err, &transportErr) {
			outcome = "transport"
		}
		metrics.XtreamAttempts.WithLabelValues(action, outcome).Inc()

		c.logger.Warn().
			Err(last.err).
			Str("action", action).
			Int("attempt", attempts).
			Int("limit", limit).
			Int("status", last.status).
			Msg("Xtream request failed")

		if attempts >= limit {
			return nil, c.exhausted(action, attempts, last.err)
		}

		if err := c.delay(ctx, c.retryDelay); err != nil {
			return nil, c.canceled(action, attempts, last.err, err)
		}
	}

	return nil, c.exhausted(action, limit, last.err)
}

func (c *Client) exhausted(action string, attempts int, last error) error {
	metrics.XtreamRetriesExhausted.WithLabelValues(action).Inc()
	c.logger.Error().
		Err(last).
		Str("action", action).
		Int("attempts", attempts).
		Msg("Xtream request retries exhausted")
	return &RetryError{Action: action, Attempts: attempts, Last: last}
}

// canceled reports a call ended by its context. The retry budget was not
// used up, so the exhausted counter is left alone.
func (c *Client) canceled(action string, attempts int, last, cause error) error {
	if last == nil {
		last = &TransportError{Err: cause}
	}
	c.logger.Debug().
		Err(cause).
		Str("action", action).
		Int("attempts", attempts).
		Msg("Xtream request canceled")
	return &RetryError{Action: action, Attempts: attempts, Last: last, Cause: cause}
}

// attempt performs a single GET bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, rawURL string) attemptOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return attemptOutcome{err: &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}}
	}
	req.Header.Set("User-Agent", c.session.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return attemptOutcome{err: &TransportError{Err: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return attemptOutcome{
			status: resp.StatusCode,
			err: &UpstreamError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(readBodyForError(resp.Body)),
			},
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptOutcome{status: resp.StatusCode, err: &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}}
	}

	payload, err := decodePayload(body)
	if err != nil {
		return attemptOutcome{status: resp.StatusCode, err: &PayloadError{Err: err}}
	}

	return attemptOutcome{payload: payload, status: resp.StatusCode}
}

func decodePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// readBodyForError reads at most maxErrorBodySize bytes of a failed response.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}
