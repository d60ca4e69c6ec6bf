package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/snapshot"
)

type listStats struct {
	Found    int
	Usable   int
	Expired  int
	Corrupt  int
	Products int
}

type purgeStats struct {
	Found        int
	Kept         int
	WouldDelete  int
	Deleted      int
	DeleteErrors int
}

func main() {
	var (
		prefix = flag.String("prefix", "", "only consider keys under this prefix")
		copyTo = flag.String("copy-to", "", "copy the CACHE_KEY snapshot to this key. Never overwrites.")
		purge  = flag.Bool("purge", false, "delete snapshots the storefront would discard")
		apply  = flag.Bool("apply", false, "apply changes. Default is dry-run.")
	)
	flag.Parse()

	if err := run(*prefix, *copyTo, *purge, *apply); err != nil {
		log.Fatalf("snapshots: %v", err)
	}
}

func run(prefix, copyTo string, purge, apply bool) error {
	ctx := context.Background()
	cfg, err := config.LoadCache()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c, err := cache.MakeCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	store := snapshot.New(c)

	switch {
	case copyTo != "":
		copied, err := copySnapshot(ctx, c, store, cfg.Cache.Key, copyTo, apply, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("done: copied=%t mode=%s\n", copied, mode(apply))
	case purge:
		stats, err := purgeSnapshots(ctx, c, store, prefix, apply, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("done: found=%d kept=%d would_delete=%d deleted=%d delete_errors=%d mode=%s\n",
			stats.Found, stats.Kept, stats.WouldDelete, stats.Deleted, stats.DeleteErrors, mode(apply))
	default:
		stats, err := listSnapshots(ctx, c, store, prefix, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("done: found=%d usable=%d expired=%d corrupt=%d products=%d\n",
			stats.Found, stats.Usable, stats.Expired, stats.Corrupt, stats.Products)
	}
	return nil
}

func mode(apply bool) string {
	if apply {
		return "apply"
	}
	return "dry-run"
}

func listSnapshots(ctx context.Context, c cache.ListCache, store *snapshot.Store, prefix string, out io.Writer) (listStats, error) {
	var stats listStats
	keys, err := c.List(ctx, prefix, "")
	if err != nil {
		return stats, fmt.Errorf("list snapshots: %w", err)
	}
	for _, k := range keys {
		key := prefix + k
		stats.Found++
		info, err := store.Inspect(ctx, key)
		switch {
		case errors.Is(err, cache.ErrNotFound):
			// removed since List
			continue
		case errors.Is(err, snapshot.ErrCorrupt):
			stats.Corrupt++
			fmt.Fprintf(out, "%-40s corrupt\n", key)
			continue
		case err != nil:
			return stats, fmt.Errorf("read %q: %w", key, err)
		}

		state := "usable"
		if info.Usable {
			stats.Usable++
			stats.Products += info.Products
		} else {
			stats.Expired++
			state = "expired"
		}
		fmt.Fprintf(out, "%-40s %-8s v%s saved=%s products=%d\n",
			key, state, info.Version, info.SavedAt.Format(time.RFC3339), info.Products)
	}
	return stats, nil
}

// purgeSnapshots deletes the records Load would evict: corrupt, unknown version or
// older than snapshot.FreshFor.
func purgeSnapshots(ctx context.Context, c cache.ListCache, store *snapshot.Store, prefix string, apply bool, out io.Writer) (purgeStats, error) {
	var stats purgeStats
	keys, err := c.List(ctx, prefix, "")
	if err != nil {
		return stats, fmt.Errorf("list snapshots: %w", err)
	}
	for _, k := range keys {
		key := prefix + k
		stats.Found++
		info, err := store.Inspect(ctx, key)
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil && !errors.Is(err, snapshot.ErrCorrupt) {
			return stats, fmt.Errorf("read %q: %w", key, err)
		}
		if err == nil && info.Usable {
			stats.Kept++
			continue
		}

		if !apply {
			stats.WouldDelete++
			fmt.Fprintf(out, "would delete %s\n", key)
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			stats.DeleteErrors++
			fmt.Fprintf(out, "failed to delete %s: %v\n", key, err)
			continue
		}
		stats.Deleted++
		fmt.Fprintf(out, "deleted %s\n", key)
	}
	return stats, nil
}

// copySnapshot seeds dst from src, for example before switching CACHE_KEY. An existing
// dst is left alone.
func copySnapshot(ctx context.Context, c cache.Cache, store *snapshot.Store, src, dst string, apply bool, out io.Writer) (bool, error) {
	exists, err := c.Exists(ctx, dst)
	if err != nil {
		return false, fmt.Errorf("check destination %q: %w", dst, err)
	}
	if exists {
		fmt.Fprintf(out, "skip existing %s -> %s\n", src, dst)
		return false, nil
	}

	if _, err := store.Inspect(ctx, src); err != nil {
		return false, fmt.Errorf("read %q: %w", src, err)
	}
	payload, err := readKey(ctx, c, src)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", src, err)
	}

	if !apply {
		fmt.Fprintf(out, "would copy %s -> %s\n", src, dst)
		return false, nil
	}
	if err := c.Put(ctx, dst, string(payload), cache.PutOptions{Condition: cache.PutIfNoneMatch}); err != nil {
		if errors.Is(err, cache.ErrAlreadyExists) {
			fmt.Fprintf(out, "skip existing %s -> %s\n", src, dst)
			return false, nil
		}
		return false, fmt.Errorf("write %q: %w", dst, err)
	}
	fmt.Fprintf(out, "copied %s -> %s\n", src, dst)
	return true, nil
}

func readKey(ctx context.Context, c cache.Cache, key string) ([]byte, error) {
	r, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	return io.ReadAll(r)
}
