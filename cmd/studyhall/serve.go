package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/studyhall-ai/studyhall/pkg/cache"
	"github.com/studyhall-ai/studyhall/pkg/metrics"
	"github.com/studyhall-ai/studyhall/pkg/provider"
	"github.com/studyhall-ai/studyhall/pkg/ratelimit"
	"github.com/studyhall-ai/studyhall/pkg/registry"
	"github.com/studyhall-ai/studyhall/pkg/server"
	"github.com/studyhall-ai/studyhall/pkg/teaching"
	"github.com/studyhall-ai/studyhall/pkg/usage"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tutoring gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg, err := registry.Load(cfg.ModelsPath)
			if err != nil {
				return fmt.Errorf("load model registry: %w", err)
			}
			if err := reg.Watch(ctx); err != nil {
				log.Printf("model registry hot-reload disabled: %v", err)
			}

			recorder, err := usage.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init usage recorder: %w", err)
			}
			defer func() { _ = recorder.Close() }()

			var rdb *redis.Client
			if cfg.Redis.Enabled() {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
				}
				defer func() { _ = rdb.Close() }()
				log.Printf("using redis at %s for rate limiting and caching", cfg.Redis.Addr)
			}

			var limiter ratelimit.Limiter
			if rdb != nil {
				limiter = ratelimit.NewRedisLimiter(rdb)
			} else {
				limiter = ratelimit.NewMemoryLimiter()
			}

			var store cache.Store
			if cfg.Cache.Enabled {
				switch {
				case rdb != nil:
					store = cache.NewRedisStore(rdb)
				case cfg.Cache.Persistent:
					store, err = cache.NewSQLiteStore(cfg.DBPath)
					if err != nil {
						return fmt.Errorf("init cache: %w", err)
					}
				default:
					store = cache.NewMemoryStore()
				}
				defer func() { _ = store.Close() }()
			}

			factory := provider.NewFactory(reg)
			defer func() { _ = factory.Close() }()

			svc := teaching.New(
				limiter,
				store,
				reg,
				factory,
				recorder,
				metrics.New(prometheus.DefaultRegisterer),
				teaching.Options{
					RateLimit:       cfg.RateLimit.Requests,
					RateLimitWindow: cfg.RateLimit.Window,
					CacheTTL:        cfg.Cache.TTL,
				},
			)

			srv := server.New(cfg.Listen, svc, reg, store, factory)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "studyhall.yaml", "path to config file")
	return cmd
}
