// Package snapshot mirrors the last good primary catalog into a cache backend so the
// storefront can still render when the sheet is unreachable.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/cache"
	"storefront/internal/catalog"
)

const (
	// Version is written into every record.
	Version = "1.0"

	// FreshFor is how long a saved snapshot may be served.
	FreshFor = 24 * time.Hour
)

// versions this build can read
var readable = map[string]bool{Version: true}

// ErrCorrupt marks a stored value that is not a snapshot record.
var ErrCorrupt = errors.New("corrupt snapshot record")

// Record is the persisted shape.
type Record struct {
	Products  []catalog.Product `json:"products"`
	Timestamp int64             `json:"timestamp"`
	Version   string            `json:"version"`
}

// CacheError wraps a storage or encoding failure. It is only ever logged.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("snapshot %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

type Store struct {
	cache cache.Cache
	now   func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(c cache.Cache, opts ...Option) *Store {
	s := &Store{cache: c, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes products under key. Failures are logged and otherwise ignored.
func (s *Store) Save(ctx context.Context, products []catalog.Product, key string) {
	if products == nil {
		products = []catalog.Product{}
	}
	rec := Record{
		Products:  products,
		Timestamp: s.now().UnixMilli(),
		Version:   Version,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode snapshot", "error", &CacheError{Op: "save", Key: key, Err: err})
		return
	}
	if err := s.cache.Put(ctx, key, string(data), cache.PutOptions{}); err != nil {
		slog.ErrorContext(ctx, "failed to save snapshot", "error", &CacheError{Op: "save", Key: key, Err: err})
		return
	}
	slog.InfoContext(ctx, "saved catalog snapshot", "key", key, "products", len(products))
}

// Load returns the products saved under key when they are at most FreshFor old.
// Stale or unreadable records are evicted.
func (s *Store) Load(ctx context.Context, key string) ([]catalog.Product, bool) {
	rec, err := s.read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			s.evict(ctx, key)
		}
		if !errors.Is(err, cache.ErrNotFound) {
			slog.WarnContext(ctx, "failed to load snapshot", "error", &CacheError{Op: "load", Key: key, Err: err})
		}
		return nil, false
	}

	if !readable[rec.Version] {
		slog.WarnContext(ctx, "discarding snapshot with unknown version", "key", key, "version", rec.Version)
		s.evict(ctx, key)
		return nil, false
	}

	age := s.now().Sub(rec.SavedAt())
	if age > FreshFor {
		slog.InfoContext(ctx, "discarding stale snapshot", "key", key, "age", age)
		s.evict(ctx, key)
		return nil, false
	}
	if rec.Products == nil {
		rec.Products = []catalog.Product{}
	}
	return rec.Products, true
}

// Info summarizes a stored record without the product list.
type Info struct {
	Key      string
	Version  string
	SavedAt  time.Time
	Products int
	// Usable is what Load would decide right now.
	Usable bool
}

// Inspect reads the record under key without evicting it, whatever its state.
func (s *Store) Inspect(ctx context.Context, key string) (Info, error) {
	rec, err := s.read(ctx, key)
	if err != nil {
		return Info{Key: key}, err
	}
	return Info{
		Key:      key,
		Version:  rec.Version,
		SavedAt:  rec.SavedAt(),
		Products: len(rec.Products),
		Usable:   readable[rec.Version] && s.now().Sub(rec.SavedAt()) <= FreshFor,
	}, nil
}

func (r *Record) SavedAt() time.Time { return time.UnixMilli(r.Timestamp).UTC() }

func (s *Store) read(ctx context.Context, key string) (*Record, error) {
	rc, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close snapshot reader", "key", key, "error", err)
		}
	}()

	var rec Record
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &rec, nil
}

func (s *Store) evict(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to evict snapshot", "error", &CacheError{Op: "evict", Key: key, Err: err})
	}
}
