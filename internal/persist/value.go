// Package persist binds typed values to keys of a storage.KV. A Value caches
// the decoded blob in memory and writes every change through to the store
// before returning, so readers never observe a value that is not durable.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"lifebalance/internal/storage"
)

// Value is a reactive cell holding the decoded JSON blob stored under one key.
type Value[T any] struct {
	kv  storage.KV
	ns  string
	key string
	def T

	mu   sync.RWMutex
	cur  T
	subs map[int]func(T)
	next int
}

type options struct {
	logger    *slog.Logger
	onCorrupt func(key string, err error)
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used to report corrupt blobs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCorruptHook registers fn to be called when the stored blob cannot be
// decoded and the default is used instead.
func WithCorruptHook(fn func(key string, err error)) Option {
	return func(o *options) { o.onCorrupt = fn }
}

// Open reads key from ns and returns a cell initialised with its value.
// An absent or undecodable blob yields def; the bad blob stays in place
// until the next Set overwrites it. Only backend failures are returned.
func Open[T any](ctx context.Context, kv storage.KV, ns, key string, def T, opts ...Option) (*Value[T], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	v := &Value[T]{kv: kv, ns: ns, key: key, def: def, cur: def, subs: map[int]func(T){}}

	raw, ok, err := kv.GetItem(ctx, ns, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return v, nil
	}

	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		o.logger.WarnContext(ctx, "Discarding corrupt stored value",
			"key", key,
			"namespace", ns,
			"error", err)
		if o.onCorrupt != nil {
			o.onCorrupt(key, err)
		}
		return v, nil
	}
	v.cur = decoded
	return v, nil
}

// Key returns the storage key the cell is bound to.
func (v *Value[T]) Key() string { return v.key }

// Get returns the cached value without touching storage.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set writes x through to storage and then updates the cell. On a write
// error the cell keeps its previous value.
func (v *Value[T]) Set(ctx context.Context, x T) error {
	b, err := json.Marshal(x)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.key, err)
	}

	v.mu.Lock()
	if err := v.kv.SetItem(ctx, v.ns, v.key, string(b)); err != nil {
		v.mu.Unlock()
		return fmt.Errorf("write %s: %w", v.key, err)
	}
	v.cur = x
	subs := v.snapshotSubs()
	v.mu.Unlock()

	notify(subs, x)
	return nil
}

// Remove deletes the key and resets the cell to its default.
func (v *Value[T]) Remove(ctx context.Context) error {
	v.mu.Lock()
	if err := v.kv.RemoveItem(ctx, v.ns, v.key); err != nil {
		v.mu.Unlock()
		return fmt.Errorf("remove %s: %w", v.key, err)
	}
	v.cur = v.def
	subs := v.snapshotSubs()
	v.mu.Unlock()

	notify(subs, v.def)
	return nil
}

// Subscribe registers fn to run after every successful Set or Remove.
// The returned function cancels the subscription.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

func (v *Value[T]) snapshotSubs() []func(T) {
	out := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		out = append(out, fn)
	}
	return out
}

func notify[T any](subs []func(T), x T) {
	for _, fn := range subs {
		fn(x)
	}
}
