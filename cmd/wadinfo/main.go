package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jchantrell/wadinfo/internal/bundle"
	"github.com/jchantrell/wadinfo/internal/cache"
	"github.com/jchantrell/wadinfo/internal/config"
	"github.com/jchantrell/wadinfo/internal/wad"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	cacheCapacity int
	workers       int
	logLevel      string
	logFormat     string
	noProgress    bool
)

var rootCmd = &cobra.Command{
	Use:   "wadinfo",
	Short: "Inspect Doom engine game data, mod bundles and engine executables",
	Long: `wadinfo reads IWAD/PWAD archives, ZIP-based mod bundles (PK3 and friends)
and engine executables, and reports the maps, game and version information a
launcher needs to build a command line.

Results are kept in an in-memory cache keyed by file identity, so files that
did not change are never parsed twice in one run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("cache-capacity") {
			cfg.CacheCapacity = cacheCapacity
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var level slog.Level
		switch cfg.LogLevel {
		case config.LogLevelDebug:
			level = slog.LevelDebug
		case config.LogLevelWarn:
			level = slog.LevelWarn
		case config.LogLevelError:
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == config.LogFormatJSON {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level: level,
			})
		}

		logger := slog.New(handler)
		slog.SetDefault(logger)

		slog.Debug("Configuration",
			"cache_capacity", cfg.CacheCapacity,
			"workers", cfg.Workers,
			"max_descriptor_size", cfg.MaxDescriptorSize,
			"max_payload_size", cfg.MaxPayloadSize,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

// newCache builds the session cache from the loaded configuration.
func newCache() *cache.Cache {
	return cache.New(
		cache.WithCapacity(cfg.CacheCapacity),
		cache.WithWADOptions(wad.WithMaxDescriptorSize(cfg.MaxDescriptorSize)),
		cache.WithBundleOptions(
			bundle.WithMaxDescriptorSize(cfg.MaxDescriptorSize),
			bundle.WithMaxPayloadSize(cfg.MaxPayloadSize),
		),
	)
}

// showProgress reports whether a progress bar would not interleave with log output.
func showProgress() bool {
	return !(noProgress || cfg.LogFormat == config.LogFormatJSON || cfg.LogLevel == config.LogLevelDebug)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is wadinfo.yaml in $HOME or pwd)")
	rootCmd.PersistentFlags().IntVar(&cacheCapacity, "cache-capacity", 0, "maximum number of cached records (0 for unbounded)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "number of files parsed in parallel")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
