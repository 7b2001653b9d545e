package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"exampro-service/internal/app"
	"exampro-service/internal/config"
	"exampro-service/internal/infra/memory"
	"exampro-service/internal/infra/postgres"
	redisstore "exampro-service/internal/infra/redis"
	"exampro-service/internal/infra/remote"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// runtime holds the wired service and the connections it owns.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	service *app.Service
	closers []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

// buildRuntime picks Postgres or the fixture data source, Redis or the
// in-process cache, and the optional remote tier from cfg.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	rt := &runtime{cfg: cfg, logger: logger}

	var source app.DataSource
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		source = postgres.NewDataSource(pool, logger)
	} else {
		mem := memory.NewDataSource()
		if cfg.Fixtures.Path != "" {
			loaded, err := memory.LoadFixture(cfg.Fixtures.Path)
			switch {
			case err == nil:
				mem = loaded
			case errors.Is(err, os.ErrNotExist):
				logger.Warn("fixture file not found, starting empty", "path", cfg.Fixtures.Path)
			default:
				rt.Close()
				return nil, err
			}
		}
		source = mem
	}

	var store app.SnapshotStore = memory.NewSnapshotStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable yet; cache reads will fall through", "addr", cfg.Redis.Addr, "error", err)
		}
		store = redisstore.NewSnapshotStore(client, logger)
	}

	opts := []app.Option{app.WithCacheTTL(cfg.CacheTTL()), app.WithLogger(logger)}
	if cfg.Leaderboard.RemoteURL != "" {
		client := remote.NewClient(cfg.Leaderboard.RemoteURL, &http.Client{Timeout: cfg.RemoteTimeout()})
		opts = append(opts, app.WithRemote(client, cfg.RemoteTimeout()))
	}
	rt.service = app.NewService(source, store, opts...)
	return rt, nil
}

func loadRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return buildRuntime(ctx, cfg)
}
