package shell

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"lifebalance/internal/cache"
	"lifebalance/internal/log"
	"lifebalance/internal/session"
	"lifebalance/internal/storage"
)

const lockStripes = 64

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Size   int
	TTL    time.Duration
	Deps   Deps
	Logger *log.Logger
	// OnOpen and OnClose observe workspace lifetimes, e.g. for a gauge.
	OnOpen  func()
	OnClose func()
}

// Registry keeps recently used workspaces in memory and serializes requests
// per device, so each storage key has a single writer at a time. A striped
// lock guards opening; each workspace serializes its own requests.
type Registry struct {
	kv      storage.KV
	cfg     RegistryConfig
	cache   *cache.LRUCache[*Workspace]
	stripes [lockStripes]sync.Mutex
	logger  *log.Logger
}

func NewRegistry(kv storage.KV, cfg RegistryConfig) *Registry {
	if cfg.Size <= 0 {
		cfg.Size = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Wrap(nil, log.ComponentShell)
	}
	r := &Registry{
		kv:     kv,
		cfg:    cfg,
		cache:  cache.NewLRUCache[*Workspace](cfg.Size, cfg.TTL),
		logger: cfg.Logger.WithComponent(log.ComponentShell),
	}
	r.cache.OnEvict(func(device string, w *Workspace) {
		if w.Close() {
			r.logger.Debug("Workspace closed", log.FieldDevice, device)
			if r.cfg.OnClose != nil {
				r.cfg.OnClose()
			}
		}
	})
	return r
}

// With runs fn with the workspace of device, opening it on first use. Calls
// for the same device never overlap; calls for other devices are not held
// up by fn.
func (r *Registry) With(ctx context.Context, device string, fn func(*Workspace) error) error {
	for {
		w, err := r.acquire(ctx, device)
		if err != nil {
			return err
		}
		w.serial.Lock()
		if w.Closed() {
			// Evicted while waiting; the next acquire reopens it from storage.
			w.serial.Unlock()
			continue
		}
		err = fn(w)
		w.serial.Unlock()
		return err
	}
}

// Session returns the session manager of device without waiting for
// requests in flight on its workspace. Login and register serialize among
// themselves, so their simulated delay only holds up other auth calls.
func (r *Registry) Session(ctx context.Context, device string) (*session.Manager, error) {
	w, err := r.acquire(ctx, device)
	if err != nil {
		return nil, err
	}
	return w.Session, nil
}

// acquire returns the cached workspace of device or opens it. The device's
// lock stripe is held only while opening.
func (r *Registry) acquire(ctx context.Context, device string) (*Workspace, error) {
	mu := r.lockFor(device)
	mu.Lock()
	defer mu.Unlock()

	if w, ok := r.cache.Get(device); ok && !w.Closed() {
		return w, nil
	}
	w, err := OpenWorkspace(ctx, r.kv, device, r.cfg.Deps)
	if err != nil {
		return nil, err
	}
	r.cache.Set(device, w)
	r.logger.DebugContext(ctx, "Workspace opened", log.FieldDevice, device)
	if r.cfg.OnOpen != nil {
		r.cfg.OnOpen()
	}
	return w, nil
}

// Forget drops the cached workspace of device; the next call reopens it
// from storage.
func (r *Registry) Forget(device string) {
	mu := r.lockFor(device)
	mu.Lock()
	defer mu.Unlock()
	r.cache.Delete(device)
}

// Cleaner exposes the workspace cache for periodic expiry sweeps.
func (r *Registry) Cleaner() cache.Cleaner { return r.cache }

// Open returns the number of cached workspaces.
func (r *Registry) Open() int { return r.cache.Size() }

// Close retires every cached workspace.
func (r *Registry) Close() {
	if n := r.cache.Purge(); n > 0 {
		r.logger.Info("Workspaces closed", "count", n)
	}
}

func (r *Registry) lockFor(device string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(device))
	return &r.stripes[h.Sum32()%lockStripes]
}
