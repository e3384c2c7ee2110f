package cmd

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/iptvkit/xtream"
)

var (
	filterExpr  string
	categoryID  string
	withStreams bool
)

var mediaKinds = []string{"vod", "series", "live"}

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check the credentials and show the account details",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		info, err := client.Authenticate(ctx)
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}

		if len(info) == 0 {
			fmt.Println("The provider answered without account details.")
			return nil
		}

		if field(info, "auth") == "1" {
			fmt.Println(styled(okStyle, "✓ Authenticated"))
		}

		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Printf("  %-24s %s\n", k+":", field(info, k))
		}
		return nil
	}),
}

// categoriesCmd represents the categories command
var categoriesCmd = &cobra.Command{
	Use:       "categories [vod|series|live]",
	Short:     "List the provider's categories",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: mediaKinds,
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		kind := "vod"
		if len(args) == 1 {
			kind = args[0]
		}

		var (
			payload xtream.Payload
			err     error
		)
		switch kind {
		case "vod":
			payload, err = client.GetVodCategories(ctx)
		case "series":
			payload, err = client.GetSeriesCategories(ctx)
		case "live":
			payload, err = client.GetLiveCategories(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to get %s categories: %w", kind, err)
		}
		return printItems(categoryListing, payload, filterExpr)
	}),
}

// streamsCmd represents the streams command
var streamsCmd = &cobra.Command{
	Use:       "streams [vod|live]",
	Short:     "List movies or live channels",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"vod", "live"},
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		if args[0] == "live" {
			payload, err := client.GetLiveStreams(ctx, categoryID)
			if err != nil {
				return fmt.Errorf("failed to get live streams: %w", err)
			}
			return printItems(liveListing, payload, filterExpr)
		}

		payload, err := client.GetVodStreams(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to get vod streams: %w", err)
		}
		return printItems(vodListing, payload, filterExpr)
	}),
}

// seriesCmd represents the series command
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List series",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		payload, err := client.GetSeries(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to get series: %w", err)
		}
		return printItems(seriesListing, payload, filterExpr)
	}),
}

// seriesInfoCmd represents the series-info command
var seriesInfoCmd = &cobra.Command{
	Use:   "series-info SERIES_ID",
	Short: "Show the seasons and episodes of a series",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		payload, err := client.GetSeriesInfo(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get series info: %w", err)
		}
		return printJSON(payload)
	}),
}

// vodInfoCmd represents the vod-info command
var vodInfoCmd = &cobra.Command{
	Use:   "vod-info VOD_ID",
	Short: "Show the detail record of a movie",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		payload, err := client.GetVodInfo(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get vod info: %w", err)
		}
		return printJSON(payload)
	}),
}

// urlCmd represents the url command
var urlCmd = &cobra.Command{
	Use:   "url movie|series|live ID EXT",
	Short: "Print the direct media URL of a stream",
	Long: `Print the direct media URL of a stream. No request is made; the URL embeds
the credentials, so treat it as a secret.`,
	Args: cobra.MatchAll(cobra.ExactArgs(3), func(cmd *cobra.Command, args []string) error {
		if !slices.Contains([]string{"movie", "series", "live"}, args[0]) {
			return fmt.Errorf("invalid media kind %q (must be movie, series or live)", args[0])
		}
		return nil
	}),
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		id, ext := args[1], args[2]
		switch args[0] {
		case "movie":
			fmt.Println(client.BuildMovieURL(id, ext))
		case "series":
			fmt.Println(client.BuildSeriesURL(id, ext))
		case "live":
			fmt.Println(client.BuildLiveURL(id, ext))
		}
		return nil
	}),
}

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Summarize the provider's catalog",
	Long: `Fetch the vod, series and live categories concurrently and print their
counts. With --streams the full listings are fetched as well.`,
	Args: cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, client xtream.API, args []string) error {
		counts, err := fetchCatalog(ctx, client, withStreams)
		if err != nil {
			return err
		}

		fmt.Println(styled(headingStyle, "Catalog"))
		for _, name := range catalogOrder {
			if n, ok := counts[name]; ok {
				fmt.Printf("  %-20s %d\n", name+":", n)
			}
		}
		return nil
	}),
}

var catalogOrder = []string{
	"vod categories", "series categories", "live categories",
	"movies", "series", "channels",
}

// fetchCatalog runs the catalog requests concurrently. The first failure
// cancels the rest.
func fetchCatalog(ctx context.Context, client xtream.API, streams bool) (map[string]int, error) {
	type fetch struct {
		name string
		get  func(context.Context) (xtream.Payload, error)
	}

	fetches := []fetch{
		{"vod categories", client.GetVodCategories},
		{"series categories", client.GetSeriesCategories},
		{"live categories", client.GetLiveCategories},
	}
	if streams {
		fetches = append(fetches,
			fetch{"movies", func(ctx context.Context) (xtream.Payload, error) { return client.GetVodStreams(ctx, "") }},
			fetch{"series", func(ctx context.Context) (xtream.Payload, error) { return client.GetSeries(ctx, "") }},
			fetch{"channels", func(ctx context.Context) (xtream.Payload, error) { return client.GetLiveStreams(ctx, "") }},
		)
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int, len(fetches))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for _, f := range fetches {
		g.Go(func() error {
			payload, err := f.get(gctx)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", f.name, err)
			}
			mu.Lock()
			counts[f.name] = len(xtream.Items(payload))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func init() {
	categoriesCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression or name of a configured filter")

	for _, c := range []*cobra.Command{streamsCmd, seriesCmd} {
		c.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression or name of a configured filter")
		c.Flags().StringVarP(&categoryID, "category", "c", "", "only list items of this category")
	}

	catalogCmd.Flags().BoolVar(&withStreams, "streams", false, "also count movies, series and channels")

	rootCmd.AddCommand(authCmd, categoriesCmd, streamsCmd, seriesCmd, seriesInfoCmd, vodInfoCmd, urlCmd, catalogCmd)
}
