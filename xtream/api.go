package xtream

import (
	"context"
	"maps"
	"slices"
)

// API defines the Xtream accessor set
type API interface {
	// Authenticate returns the provider's user_info block
	Authenticate(ctx context.Context) (map[string]any, error)

	GetLiveCategories(ctx context.Context) (Payload, error)
	GetLiveStreams(ctx context.Context, categoryID string) (Payload, error)
	GetVodCategories(ctx context.Context) (Payload, error)
	GetVodStreams(ctx context.Context, categoryID string) (Payload, error)
	GetVodInfo(ctx context.Context, vodID string) (Payload, error)
	GetSeriesCategories(ctx context.Context) (Payload, error)
	GetSeries(ctx context.Context, categoryID string) (Payload, error)
	GetSeriesInfo(ctx context.Context, seriesID string) (Payload, error)

	BuildMovieURL(id, ext string) string
	BuildSeriesURL(id, ext string) string
	BuildLiveURL(id, ext string) string
}

// Ensure the clients implement API at compile time.
var (
	_ API = (*Client)(nil)
	_ API = (*CachedClient)(nil)
)

// Provider actions
const (
	ActionLiveCategories   = "get_live_categories"
	ActionLiveStreams      = "get_live_streams"
	ActionVodCategories    = "get_vod_categories"
	ActionVodStreams       = "get_vod_streams"
	ActionVodInfo          = "get_vod_info"
	ActionSeriesCategories = "get_series_categories"
	ActionSeries           = "get_series"
	ActionSeriesInfo       = "get_series_info"
)

// Authenticate calls the bare player_api endpoint and returns its
// user_info mapping. A payload without user_info yields an empty map.
func (c *Client) Authenticate(ctx context.Context) (map[string]any, error) {
	if c == nil || !c.session.initialized {
		return nil, ErrNotInitialized
	}

	payload, err := c.call(ctx, "authenticate", c.authURL())
	if err != nil {
		return nil, err
	}

	if body, ok := payload.(map[string]any); ok {
		if info, ok := body["user_info"].(map[string]any); ok {
			return info, nil
		}
	}
	return map[string]any{}, nil
}

// GetLiveCategories retrieves the live channel categories
func (c *Client) GetLiveCategories(ctx context.Context) (Payload, error) {
	return c.get(ctx, ActionLiveCategories)
}

// GetLiveStreams retrieves live channels, optionally limited to one category
func (c *Client) GetLiveStreams(ctx context.Context, categoryID string) (Payload, error) {
	return c.get(ctx, ActionLiveStreams, optional("category_id", categoryID)...)
}

// GetVodCategories retrieves the VOD categories
func (c *Client) GetVodCategories(ctx context.Context) (Payload, error) {
	return c.get(ctx, ActionVodCategories)
}

// GetVodStreams retrieves VOD items, optionally limited to one category
func (c *Client) GetVodStreams(ctx context.Context, categoryID string) (Payload, error) {
	return c.get(ctx, ActionVodStreams, optional("category_id", categoryID)...)
}

// GetVodInfo retrieves the detail record of one VOD item
func (c *Client) GetVodInfo(ctx context.Context, vodID string) (Payload, error) {
	return c.get(ctx, ActionVodInfo, Param{Key: "vod_id", Value: vodID})
}

// GetSeriesCategories retrieves the series categories
func (c *Client) GetSeriesCategories(ctx context.Context) (Payload, error) {
	return c.get(ctx, ActionSeriesCategories)
}

// GetSeries retrieves series, optionally limited to one category
func (c *Client) GetSeries(ctx context.Context, categoryID string) (Payload, error) {
	return c.get(ctx, ActionSeries, optional("category_id", categoryID)...)
}

// GetSeriesInfo retrieves seasons and episodes of one series
func (c *Client) GetSeriesInfo(ctx context.Context, seriesID string) (Payload, error) {
	return c.get(ctx, ActionSeriesInfo, Param{Key: "series_id", Value: seriesID})
}

func (c *Client) get(ctx context.Context, action string, extra ...Param) (Payload, error) {
	if c == nil || !c.session.initialized {
		return nil, ErrNotInitialized
	}
	return c.call(ctx, action, c.BuildURL(action, extra...))
}

func optional(key, value string) []Param {
	if value == "" {
		return nil
	}
	return []Param{{Key: key, Value: value}}
}

// Items returns a payload as a list. Arrays are returned as-is; some
// providers answer listings with an object keyed by id, whose values are
// returned in key order. Anything else yields nil.
func Items(p Payload) []any {
	switch v := p.(type) {
	case []any:
		return v
	case map[string]any:
		items := make([]any, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			items = append(items, v[k])
		}
		return items
	default:
		return nil
	}
}
