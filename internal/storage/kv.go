// Package storage provides the durable key-value tier behind every persisted
// cell. Keys live inside a namespace, one per device, mirroring how browser
// local storage is scoped to a single profile.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("storage: store is closed")

// KV is a string key-value store partitioned by namespace.
type KV interface {
	// GetItem returns the value stored under key. ok is false when the key
	// is absent; err is only set for backend failures.
	GetItem(ctx context.Context, ns, key string) (value string, ok bool, err error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, ns, key, value string) error
	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, ns, key string) error
	// Keys lists the keys present in ns, sorted.
	Keys(ctx context.Context, ns string) ([]string, error)
	// Namespaces lists every namespace holding at least one key, sorted.
	Namespaces(ctx context.Context) ([]string, error)
	Close() error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
