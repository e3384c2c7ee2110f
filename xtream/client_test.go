package xtream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/iptvkit/metrics"
)

// countingDelayer records the waits between attempts without sleeping.
type countingDelayer struct {
	calls atomic.Int32
}

func (d *countingDelayer) delay(ctx context.Context, _ time.Duration) error {
	d.calls.Add(1)
	return ctx.Err()
}

func TestCall_RetriesUntilExhausted(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))

		delayer := &countingDelayer{}
		client := newTestClient(t, server.URL, WithRetryLimit(limit), WithDelayer(delayer.delay))

		payload, err := client.GetVodCategories(context.Background())
		server.Close()

		assert.Nil(t, payload)
		require.ErrorIs(t, err, ErrRetriesExhausted)

		var retryErr *RetryError
		require.ErrorAs(t, err, &retryErr)
		assert.Equal(t, limit, retryErr.Attempts)
		assert.Equal(t, ActionVodCategories, retryErr.Action)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
		assert.Equal(t, "boom", upstream.Body)

		assert.Equal(t, int32(limit), attempts.Load(), "limit %d", limit)
		assert.Equal(t, int32(limit-1), delayer.calls.Load(), "limit %d", limit)
	}
}

func TestCall_SucceedsOnThirdAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"category_id":"1","category_name":"Action"}]`))
	}))
	defer server.Close()

	delayer := &countingDelayer{}
	client := newTestClient(t, server.URL, WithRetryLimit(5), WithDelayer(delayer.delay))

	payload, err := client.GetVodCategories(context.Background())
	require.NoError(t, err)

	items := Items(payload)
	require.Len(t, items, 1)
	assert.Equal(t, "Action", items[0].(map[string]any)["category_name"])
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(2), delayer.calls.Load())
}

func TestCall_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	delayer := &countingDelayer{}
	client := newTestClient(t, base, WithRetryLimit(3), WithDelayer(delayer.delay))

	_, err := client.GetLiveCategories(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
	assert.Equal(t, int32(2), delayer.calls.Load())
}

func TestCall_PerAttemptTimeout(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	delayer := &countingDelayer{}
	client := newTestClient(t, server.URL,
		WithRetryLimit(2),
		WithTimeout(50*time.Millisecond),
		WithDelayer(delayer.delay),
	)

	_, err := client.GetSeries(context.Background(), "")
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCall_InvalidPayloadIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	delayer := &countingDelayer{}
	client := newTestClient(t, server.URL, WithDelayer(delayer.delay))

	_, err := client.GetSeriesCategories(context.Background())
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 1, retryErr.Attempts)
	assert.False(t, retryErr.Canceled())

	var payloadErr *PayloadError
	require.ErrorAs(t, err, &payloadErr)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Zero(t, delayer.calls.Load())
}

func TestCall_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	payload, err := client.GetLiveStreams(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestCall_ContextCancelledDuringDelay(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exhausted := metrics.XtreamRetriesExhausted.WithLabelValues(ActionVodStreams)
	exhaustedBefore := testutil.ToFloat64(exhausted)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, server.URL,
		WithRetryLimit(5),
		WithDelayer(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	_, err := client.GetVodStreams(ctx, "")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, context.Canceled)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 1, retryErr.Attempts)
	assert.True(t, retryErr.Canceled())
	assert.Equal(t, int32(1), attempts.Load())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)

	assert.Equal(t, exhaustedBefore, testutil.ToFloat64(exhausted))
}

func TestCall_ContextCancelledBeforeFirstAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL)
	_, err := client.GetLiveStreams(ctx, "")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, context.Canceled)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Zero(t, retryErr.Attempts)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Zero(t, attempts.Load())
}

func TestCall_SendsUserAgent(t *testing.T) {
	var gotUA atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, err := New(FromPlaylist{Playlist: fakePlaylist{
		xtream:    true,
		creds:     Credentials{URL: server.URL, Username: "u", Password: "p"},
		userAgent: "TiviMate/4.7",
	}})
	require.NoError(t, err)

	_, err = client.GetLiveCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TiviMate/4.7", gotUA.Load())
}

func TestCall_NotInitialized(t *testing.T) {
	var client Client

	_, err := client.Call(context.Background(), "http://provider.example/player_api.php")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = client.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = client.GetVodInfo(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotInitialized)

	var nilClient *Client
	_, err = nilClient.GetSeriesInfo(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCall_RawURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/player_api.php", r.URL.Path)
		assert.Equal(t, "get_short_epg", r.URL.Query().Get("action"))
		w.Write([]byte(`{"epg_listings":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	payload, err := client.Call(context.Background(), client.BuildURL("get_short_epg", Param{Key: "stream_id", Value: "9"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"epg_listings": []any{}}, payload)
}

func TestCall_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	attempts := metrics.XtreamAttempts.WithLabelValues(ActionSeriesInfo, "upstream")
	exhausted := metrics.XtreamRetriesExhausted.WithLabelValues(ActionSeriesInfo)
	attemptsBefore := testutil.ToFloat64(attempts)
	exhaustedBefore := testutil.ToFloat64(exhausted)

	delayer := &countingDelayer{}
	client := newTestClient(t, server.URL, WithRetryLimit(3), WithDelayer(delayer.delay))

	_, err := client.GetSeriesInfo(context.Background(), "1")
	require.Error(t, err)

	assert.Equal(t, attemptsBefore+3, testutil.ToFloat64(attempts))
	assert.Equal(t, exhaustedBefore+1, testutil.ToFloat64(exhausted))
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, sleepWithContext(context.Background(), 0))
	assert.NoError(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepWithContext(ctx, time.Hour), context.Canceled)
}
