package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jchantrell/wadinfo/internal/cache"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/utils"
	"github.com/spf13/cobra"
)

type ScanStats struct {
	StartTime time.Time
	EndTime   time.Time
	Files     int
	Failures  map[metadata.Failure]int
	Maps      int
	Entries   int64
	Warnings  int
	Passes    int
}

var scanTwice bool

var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Read many files in parallel and print a summary",
	Long: `Scan pre-warms the metadata cache for every file given, using the configured
number of workers, and prints a summary of what was found. Failures are listed
per file and never stop the rest of the batch.

With --twice every file is read a second time to show that unchanged files
are answered from the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := &ScanStats{
			StartTime: time.Now(),
			Files:     len(args),
			Failures:  map[metadata.Failure]int{},
		}

		slog.Info("Starting scan...", "files", len(args), "workers", cfg.Workers)

		c := newCache()
		results := prewarm(cmd.Context(), c, args)
		stats.Passes++

		for _, r := range results {
			if r.Err != nil {
				stats.Failures[metadata.KindOf(r.Err)]++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
				continue
			}
			stats.Maps += len(r.Record.MapNames())
			stats.Entries += int64(r.Record.EntryCount())
			stats.Warnings += len(r.Record.Warnings())
			for _, w := range r.Record.Warnings() {
				slog.Debug("Warning", "path", r.Path, "warning", w)
			}
		}

		if scanTwice {
			prewarm(cmd.Context(), c, args)
			stats.Passes++
		}

		stats.EndTime = time.Now()
		printScanSummary(stats, c.Stats())
		return nil
	},
}

func prewarm(ctx context.Context, c *cache.Cache, paths []string) []cache.Result {
	progress := utils.NewProgress(len(paths), showProgress())
	results := c.Prewarm(ctx, paths,
		cache.WithWorkers(cfg.Workers),
		cache.WithProgress(func(r cache.Result) {
			if !progress.Enabled() {
				slog.Debug("Scanned", "path", r.Path, "error", r.Err)
			}
			progress.Increment(filepath.Base(r.Path))
		}),
	)
	progress.Finish()
	return results
}

func printScanSummary(stats *ScanStats, cs cache.Stats) {
	duration := stats.EndTime.Sub(stats.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	totalMemoryMB := float64(memStats.Alloc) / 1024.0 / 1024.0

	var fileRate float64
	if seconds := duration.Seconds(); seconds > 0 {
		fileRate = float64(stats.Files*stats.Passes) / seconds
	}

	failed := 0
	for _, n := range stats.Failures {
		failed += n
	}

	fmt.Printf("Files read: %d/%d\n", stats.Files-failed, stats.Files)
	for _, kind := range []metadata.Failure{
		metadata.FailureNotFound,
		metadata.FailureAccessDenied,
		metadata.FailureUnsupportedFormat,
		metadata.FailureTruncated,
		metadata.FailureCorruptEntry,
		metadata.FailureUnknown,
	} {
		if n := stats.Failures[kind]; n > 0 {
			fmt.Printf("  %s: %d\n", kind, n)
		}
	}
	fmt.Printf("Maps found: %s\n", utils.Number(int64(stats.Maps)))
	fmt.Printf("Directory entries: %s\n", utils.Number(stats.Entries))
	fmt.Printf("Warnings: %d\n", stats.Warnings)
	fmt.Printf("Cache: %d hits, %d misses, %d stale, %d evictions, %d entries\n",
		cs.Hits, cs.Misses, cs.Stale, cs.Evictions, cs.Entries)
	fmt.Printf("Total duration: %s\n", utils.Duration(duration))
	fmt.Printf("Read rate: %s files/sec\n", utils.Rate(fileRate))
	fmt.Printf("Memory usage: %.2fmb\n", totalMemoryMB)
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanTwice, "twice", false, "read every file a second time from the cache")
}
