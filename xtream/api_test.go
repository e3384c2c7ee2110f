package xtream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]any
	}{
		{
			name: "user info present",
			body: `{"user_info":{"auth":1,"status":"Active"},"server_info":{"url":"provider.example"}}`,
			want: map[string]any{"auth": float64(1), "status": "Active"},
		},
		{
			name: "user info missing",
			body: `{}`,
			want: map[string]any{},
		},
		{
			name: "user info not an object",
			body: `{"user_info":[]}`,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/player_api.php", r.URL.Path)
				assert.Equal(t, "user", r.URL.Query().Get("username"))
				assert.Equal(t, "pass", r.URL.Query().Get("password"))
				assert.False(t, r.URL.Query().Has("action"))
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			info, err := client.Authenticate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestAccessors(t *testing.T) {
	tests := []struct {
		name       string
		call       func(context.Context, *Client) (Payload, error)
		wantAction string
		wantParams map[string]string
		absent     []string
	}{
		{
			name:       "live categories",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetLiveCategories(ctx) },
			wantAction: ActionLiveCategories,
		},
		{
			name:       "live streams by category",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetLiveStreams(ctx, "4") },
			wantAction: ActionLiveStreams,
			wantParams: map[string]string{"category_id": "4"},
		},
		{
			name:       "vod streams without category",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetVodStreams(ctx, "") },
			wantAction: ActionVodStreams,
			absent:     []string{"category_id"},
		},
		{
			name:       "vod info",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetVodInfo(ctx, "1234") },
			wantAction: ActionVodInfo,
			wantParams: map[string]string{"vod_id": "1234"},
		},
		{
			name:       "series categories",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetSeriesCategories(ctx) },
			wantAction: ActionSeriesCategories,
		},
		{
			name:       "series by category",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetSeries(ctx, "9") },
			wantAction: ActionSeries,
			wantParams: map[string]string{"category_id": "9"},
		},
		{
			name:       "series info",
			call:       func(ctx context.Context, c *Client) (Payload, error) { return c.GetSeriesInfo(ctx, "77") },
			wantAction: ActionSeriesInfo,
			wantParams: map[string]string{"series_id": "77"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, tt.wantAction, q.Get("action"))
				for k, v := range tt.wantParams {
					assert.Equal(t, v, q.Get(k))
				}
				for _, k := range tt.absent {
					assert.False(t, q.Has(k), "unexpected parameter %s", k)
				}
				w.Write([]byte(`[{"id":1}]`))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			payload, err := tt.call(context.Background(), client)
			require.NoError(t, err)
			assert.Len(t, Items(payload), 1)
		})
	}
}

func TestItems(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, Items([]any{"a", "b"}))
	assert.Equal(t, []any{"first", "second"}, Items(map[string]any{"2": "second", "1": "first"}))
	assert.Nil(t, Items(nil))
	assert.Nil(t, Items("scalar"))
}
