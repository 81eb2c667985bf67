// Command healthcheck probes the cache store and tracker connectivity and
// exits non-zero when any check fails. Intended for container health checks
// and deploy-time smoke tests; the LLM provider is deliberately not probed.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/cache"
	"github.com/tuannvm/youtrack-analyzer/internal/config"
	"github.com/tuannvm/youtrack-analyzer/internal/youtrack"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("✗ configuration: %v\n", err)
		os.Exit(1)
	}

	failed := false
	if !checkCache(ctx, cfg) {
		failed = true
	}
	if !checkYouTrack(ctx, cfg) {
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("all checks passed")
}

func checkCache(ctx context.Context, cfg *config.Config) bool {
	store, err := cache.NewBadgerStore(cache.Config{
		Path:      cfg.Cache.Dir,
		InMemory:  cfg.Cache.InMemory,
		KeyPrefix: cfg.Cache.KeyPrefix,
	})
	if err != nil {
		fmt.Printf("✗ cache open: %v\n", err)
		return false
	}
	defer store.Close()

	key := "health:probe"
	if err := store.Set(ctx, key, "ok", 10*time.Second); err != nil {
		fmt.Printf("✗ cache write: %v\n", err)
		return false
	}
	value, found, err := store.Get(ctx, key)
	if err != nil || !found || value != "ok" {
		fmt.Printf("✗ cache read: found=%t err=%v\n", found, err)
		return false
	}
	if _, found, err := store.TTL(ctx, key); err != nil || !found {
		fmt.Printf("✗ cache ttl: found=%t err=%v\n", found, err)
		return false
	}
	if _, err := store.Delete(ctx, key); err != nil {
		fmt.Printf("✗ cache delete: %v\n", err)
		return false
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Printf("✗ cache stats: %v\n", err)
		return false
	}
	fmt.Printf("✓ cache ok (%d keys)\n", stats.Keys)
	return true
}

func checkYouTrack(ctx context.Context, cfg *config.Config) bool {
	client := youtrack.NewClient(youtrack.Config{
		BaseURL: cfg.YouTrack.BaseURL,
		Token:   cfg.YouTrack.Token,
		Timeout: cfg.YouTrack.Timeout,
	})
	if err := client.TestConnection(ctx); err != nil {
		fmt.Printf("✗ youtrack: %v\n", err)
		return false
	}
	fmt.Printf("✓ youtrack reachable at %s\n", client.BaseURL())
	return true
}
