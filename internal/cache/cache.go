// Package cache is the key/value storage behind the product snapshot. Backends are
// interchangeable: local files, process memory, Azure Blob Storage, Redis and SQLite.
package cache

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrAlreadyExists = errors.New("cache entry already exists")
)

type PutCondition int

const (
	PutAlways PutCondition = iota
	// PutIfNoneMatch only writes when the key is absent.
	PutIfNoneMatch
)

type PutOptions struct {
	Condition PutCondition
}

type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key, value string, opts PutOptions) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type ListCache interface {
	Cache
	// List returns the keys under prefix with the prefix trimmed.
	List(ctx context.Context, prefix string, marker string) ([]string, error)
}
