package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/cohesion/internal/cache"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number and size of cached entries",
				Flags:  globalFlags(),
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Flags:  globalFlags(),
				Action: runCacheClear,
			},
			{
				Name:      "invalidate",
				Usage:     "Remove the cached entries of the given files",
				ArgsUsage: "<file>...",
				Flags:     append(analysisFlags(), globalFlags()...),
				Action:    runCacheInvalidate,
			},
		},
	}
}

// openCache opens the configured cache directory whether or not caching is
// enabled for analysis runs.
func openCache(c *cli.Context) (*session, *cache.Cache, error) {
	sess, err := newSession(c)
	if err != nil {
		return nil, nil, err
	}
	ttl := time.Duration(sess.cfg.Cache.TTL) * time.Hour
	store, err := cache.New(sess.cfg.Cache.Dir, ttl, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return sess, store, nil
}

func runCacheStats(c *cli.Context) error {
	sess, store, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	f, err := sess.formatter(c)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Output(output.NewTable("Cache", []string{"Metric", "Value"}, [][]string{
		{"Directory", sess.cfg.Cache.Dir},
		{"Entries", strconv.Itoa(stats.Entries)},
		{"Size (bytes)", strconv.FormatInt(stats.TotalSize, 10)},
	}, nil, stats))
}

func runCacheClear(c *cli.Context) error {
	sess, store, err := openCache(c)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Cleared %s\n", sess.cfg.Cache.Dir)
	return nil
}

func runCacheInvalidate(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("at least one file is required")
	}
	sess, store, err := openCache(c)
	if err != nil {
		return err
	}
	for _, path := range c.Args().Slice() {
		if err := store.Invalidate(path, sess.cfg.Analysis.BoundName); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", path, err)
		}
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Invalidated %d file(s)\n", c.Args().Len())
	return nil
}
