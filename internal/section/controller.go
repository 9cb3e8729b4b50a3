// Package section implements the record-editing sections of the dashboard.
// Each section owns one persisted collection and a form draft, and moves
// between browsing the collection and composing a new record.
package section

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifebalance/internal/core"
	"lifebalance/internal/log"
	"lifebalance/internal/persist"
	"lifebalance/internal/storage"
)

// ErrNotComposing is returned by Submit when no draft is open.
var ErrNotComposing = errors.New("section: not composing")

// Mode is the state of a section controller.
type Mode int

const (
	Browsing Mode = iota
	Composing
)

func (m Mode) String() string {
	if m == Composing {
		return "composing"
	}
	return "browsing"
}

// Draft is a form draft that validates itself into a record of type R.
type Draft[R any] interface {
	Build(id string, now time.Time) (R, error)
}

// Event describes a record that was just appended to a collection.
type Event struct {
	Device string
	Kind   core.Kind
	ID     string
	Type   string
	At     time.Time
}

// Notifier receives record events after a successful submit.
type Notifier interface {
	RecordCreated(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) RecordCreated(ctx context.Context, e Event) error { return f(ctx, e) }

// Notifiers fans an event out to several notifiers, joining their errors.
type Notifiers []Notifier

func (ns Notifiers) RecordCreated(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.RecordCreated(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deps are the collaborators injected into every controller.
type Deps struct {
	Now      func() time.Time
	NewID    func() string
	Notifier Notifier
	Logger   *log.Logger
	// OnCorrupt is called when a stored collection cannot be decoded.
	OnCorrupt func(key string, err error)
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Logger == nil {
		d.Logger = log.Wrap(nil, log.ComponentSection)
	}
	return d
}

// Controller owns a section's collection and its compose state.
type Controller[D Draft[R], R core.Record] struct {
	kind    core.Kind
	device  string
	records *persist.Collection[R]
	blank   func(time.Time) D
	deps    Deps

	mu    sync.Mutex
	mode  Mode
	draft D
}

// Open loads the collection of kind for device and returns a controller in
// Browsing mode with a blank draft.
func Open[D Draft[R], R core.Record](ctx context.Context, kv storage.KV, device string, kind core.Kind, blank func(time.Time) D, deps Deps) (*Controller[D, R], error) {
	deps = deps.withDefaults()
	opts := []persist.Option{persist.WithLogger(deps.Logger.Logger)}
	if deps.OnCorrupt != nil {
		opts = append(opts, persist.WithCorruptHook(deps.OnCorrupt))
	}
	records, err := persist.OpenCollection[R](ctx, kv, device, kind.StorageKey(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s records: %w", kind, err)
	}
	return &Controller[D, R]{
		kind:    kind,
		device:  device,
		records: records,
		blank:   blank,
		deps:    deps,
		draft:   blank(deps.Now()),
	}, nil
}

func (c *Controller[D, R]) Kind() core.Kind { return c.kind }

func (c *Controller[D, R]) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Compose toggles the form, like the "add new" button: it opens a blank
// draft when browsing and discards the draft when already composing.
func (c *Controller[D, R]) Compose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Composing {
		c.reset()
		return
	}
	c.mode = Composing
}

// Start opens the form if it is not already open. An existing draft is kept.
func (c *Controller[D, R]) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = Composing
}

// Cancel discards the draft and returns to Browsing.
func (c *Controller[D, R]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Controller[D, R]) Draft() D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// UpdateDraft applies fn to the draft in place.
func (c *Controller[D, R]) UpdateDraft(fn func(*D)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.draft)
}

// Submit validates the draft, prepends the new record to the collection and
// returns to Browsing. On validation or storage failure the controller stays
// in Composing with the draft untouched.
func (c *Controller[D, R]) Submit(ctx context.Context) (R, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero R
	if c.mode != Composing {
		return zero, ErrNotComposing
	}

	now := c.deps.Now()
	rec, err := c.draft.Build(c.deps.NewID(), now)
	if err != nil {
		return zero, err
	}
	if err := c.records.Prepend(ctx, rec); err != nil {
		c.deps.Logger.ErrorContext(ctx, "Failed to store record",
			log.FieldDevice, c.device,
			log.FieldSection, string(c.kind),
			log.FieldError, err)
		return zero, fmt.Errorf("store %s record: %w", c.kind, err)
	}
	c.reset()

	log.NewStructuredLogger(c.deps.Logger).LogRecordCreated(ctx, c.device, string(c.kind), rec.RecordID(), rec.RecordType())

	if c.deps.Notifier != nil {
		ev := Event{Device: c.device, Kind: c.kind, ID: rec.RecordID(), Type: rec.RecordType(), At: now}
		if err := c.deps.Notifier.RecordCreated(ctx, ev); err != nil {
			c.deps.Logger.WarnContext(ctx, "Record notification failed",
				log.FieldRecordID, rec.RecordID(),
				log.FieldError, err)
		}
	}
	return rec, nil
}

// Records returns the collection, newest first.
func (c *Controller[D, R]) Records() []R {
	return c.records.All()
}

func (c *Controller[D, R]) Len() int {
	return c.records.Len()
}

// reset must be called with mu held.
func (c *Controller[D, R]) reset() {
	c.mode = Browsing
	c.draft = c.blank(c.deps.Now())
}
