// Package xtream provides a resilient client for the Xtream Codes IPTV
// provider API (player_api.php).
//
// # Architecture
//
// The package is organized into several components:
//
//   - Session: immutable connection parameters resolved from a Source
//   - URL builders: player_api URLs with a stable parameter order and
//     direct media URLs with path-embedded credentials
//   - Caller: bounded retries with a fixed delay between attempts
//   - Accessors: categories, streams, series and detail lookups
//   - CachedClient: optional caching of listings through a Cache
//
// # Usage
//
//	client, err := xtream.New(
//		xtream.FromRawConfig{
//			"url":      "provider.example:8080",
//			"username": "user",
//			"password": "secret",
//		},
//		xtream.WithRetryLimit(3),
//		xtream.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	info, err := client.Authenticate(ctx)
//	categories, err := client.GetVodCategories(ctx)
//	movieURL := client.BuildMovieURL("1234", "mkv")
//
// A server base without a scheme is contacted over plain http://; providers
// that require https must say so in their URL.
//
// # Error Handling
//
// Initialization returns ErrMissingConfiguration when no source is given and
// ErrConfigurationMismatch when the playlist is not an Xtream playlist. Both
// are ordinary branches for callers:
//
//	client, err := xtream.New(xtream.FromPlaylist{Playlist: p})
//	if errors.Is(err, xtream.ErrConfigurationMismatch) {
//		return nil // not an Xtream playlist, skip
//	}
//
// Calls return a *RetryError once every attempt failed. It matches
// ErrRetriesExhausted and unwraps to the last *UpstreamError or
// *TransportError:
//
//	var upstream *xtream.UpstreamError
//	if errors.As(err, &upstream) && upstream.IsUnauthorized() {
//		// Handle bad credentials
//	}
package xtream
