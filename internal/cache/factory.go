package cache

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/config"
)

// MakeCache builds the backend named by CACHE_BACKEND.
func MakeCache(ctx context.Context, cfg *config.Config) (ListCache, error) {
	switch cfg.Cache.Backend {
	case "", "file":
		slog.InfoContext(ctx, "using file cache", "dir", cfg.Cache.Dir)
		return NewFileCache(cfg.Cache.Dir), nil
	case "memory":
		slog.InfoContext(ctx, "using in-memory cache")
		return NewInMemoryCache(), nil
	case "azure":
		slog.InfoContext(ctx, "using Azure Blob Storage for cache", "container", cfg.Cache.Container)
		return NewBlobCache(cfg.Azure, cfg.Cache.Container)
	case "redis":
		slog.InfoContext(ctx, "using Redis for cache")
		return NewRedisCache(ctx, cfg.Cache.RedisURL)
	case "sqlite":
		slog.InfoContext(ctx, "using SQLite for cache", "path", cfg.Cache.SQLite)
		return NewSQLiteCache(cfg.Cache.SQLite)
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
