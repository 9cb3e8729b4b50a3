package persist

import (
	"context"
	"slices"

	"lifebalance/internal/storage"
)

// Collection is an append-only, newest-first list persisted as one JSON array.
type Collection[R any] struct {
	v *Value[[]R]
}

// OpenCollection binds a collection to key. The default is an empty list.
func OpenCollection[R any](ctx context.Context, kv storage.KV, ns, key string, opts ...Option) (*Collection[R], error) {
	v, err := Open(ctx, kv, ns, key, []R{}, opts...)
	if err != nil {
		return nil, err
	}
	return &Collection[R]{v: v}, nil
}

// All returns a copy of the records, newest first.
func (c *Collection[R]) All() []R {
	return slices.Clone(c.v.Get())
}

func (c *Collection[R]) Len() int {
	return len(c.v.Get())
}

// Prepend stores r at index 0. The stored slice is never mutated in place.
func (c *Collection[R]) Prepend(ctx context.Context, r R) error {
	cur := c.v.Get()
	next := make([]R, 0, len(cur)+1)
	next = append(next, r)
	next = append(next, cur...)
	return c.v.Set(ctx, next)
}
