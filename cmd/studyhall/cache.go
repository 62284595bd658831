package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/studyhall-ai/studyhall/pkg/cache"
	"github.com/studyhall-ai/studyhall/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate the response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, cleanup, err := openRedisStore(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := store.Stats(context.Background())
			fmt.Printf("Entries:  %d\nHits:     %d\nMisses:   %d\nHit rate: %.1f%%\n",
				stats.Entries, stats.Hits, stats.Misses, stats.HitRate*100)
			return nil
		},
	}

	invalidateCmd := &cobra.Command{
		Use:   "invalidate <pattern>",
		Short: "Delete cache entries matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, cleanup, err := openRedisStore(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.Invalidate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries.\n", removed)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "studyhall.yaml", "path to config file")
	cmd.AddCommand(statsCmd, invalidateCmd)
	return cmd
}

// openRedisStore connects to the configured Redis cache. The in-memory
// cache is process-local, so without Redis there is nothing for the CLI
// to inspect; use the gateway's admin endpoints instead.
func openRedisStore(cfg *config.Config) (*cache.RedisStore, func(), error) {
	if !cfg.Redis.Enabled() {
		return nil, nil, fmt.Errorf("no redis configured; the in-memory cache is only reachable through the running gateway's /admin/cache endpoints")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	store := cache.NewRedisStore(rdb)
	return store, func() { _ = rdb.Close() }, nil
}
