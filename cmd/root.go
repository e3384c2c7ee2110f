package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/iptvkit/cache"
	"github.com/s0up4200/iptvkit/config"
	"github.com/s0up4200/iptvkit/metrics"
	"github.com/s0up4200/iptvkit/xtream"
)

var (
	cfgFile      string
	playlistName string
	logLevel     string

	cfg      *config.Config
	logger   zerolog.Logger
	appCache *cache.Cache
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "iptvkit",
	Short: "A resilient command line client for Xtream Codes IPTV providers",
	Long: `iptvkit talks to Xtream Codes IPTV providers through their player_api.php
endpoint. It lists categories, streams and series, fetches detail records,
builds direct media URLs and checks credentials, retrying failed requests
with a fixed delay between attempts.`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: finalizeApp,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&playlistName, "playlist", "p", "", "use a playlist from the config instead of the xtream section")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

// initializeApp loads the configuration, the logger and the shared cache
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logger, err = setupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	appCache = cache.New(cfg.Cache.TTL)

	return nil
}

// finalizeApp writes the metrics textfile when one is configured
func finalizeApp(cmd *cobra.Command, args []string) error {
	if cfg == nil || cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
	return nil
}

// clientSource selects the playlist named by --playlist, or the raw xtream section
func clientSource() (xtream.Source, error) {
	if playlistName == "" {
		return cfg.Xtream.Source(), nil
	}
	playlist, err := cfg.Playlist(playlistName)
	if err != nil {
		return nil, err
	}
	return xtream.FromPlaylist{Playlist: playlist}, nil
}

// newClient builds the provider client. Listings go through the shared
// cache when caching is enabled.
func newClient() (xtream.API, error) {
	source, err := clientSource()
	if err != nil {
		return nil, err
	}

	client, err := xtream.New(source,
		xtream.WithRetryLimit(cfg.Xtream.RetryLimit),
		xtream.WithUserAgent(cfg.Xtream.UserAgent),
		xtream.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug().Stringer("session", client.Session()).Msg("Xtream client initialized")

	if cfg.Cache.Enabled {
		return xtream.NewCachedClient(client, appCache, cfg.Cache.TTL), nil
	}
	return client, nil
}

// withClient wraps a command that needs a provider client. A playlist that
// is not an Xtream playlist is reported and skipped, not treated as a failure.
func withClient(run func(ctx context.Context, client xtream.API, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		switch {
		case errors.Is(err, xtream.ErrConfigurationMismatch):
			fmt.Printf("Playlist %q is not an Xtream Codes playlist, nothing to do.\n", playlistName)
			return nil
		case errors.Is(err, xtream.ErrMissingConfiguration):
			return fmt.Errorf("%w: set xtream.url, xtream.username and xtream.password or pass --playlist", err)
		case err != nil:
			return err
		}
		return run(cmd.Context(), client, args)
	}
}
