// Package session holds the per-device identity stub. Login and register
// accept any non-empty credentials after an artificial delay and persist a
// fabricated user, so a returning device is logged in without prompting.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lifebalance/internal/core"
	"lifebalance/internal/log"
	"lifebalance/internal/persist"
	"lifebalance/internal/storage"
)

// DefaultDelay is the simulated network latency of login and register.
const DefaultDelay = time.Second

// MsgMissingFields is shown when a credential field is left blank.
const MsgMissingFields = "Por favor, preencha todos os campos"

type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Options tunes a Manager. Zero values select the defaults; a negative
// Delay disables the wait.
type Options struct {
	Delay     time.Duration
	Now       func() time.Time
	NewID     func() string
	Sleep     func(time.Duration)
	Logger    *log.Logger
	OnCorrupt func(key string, err error)
}

// Manager is the session of one device.
type Manager struct {
	device string
	user   *persist.Value[*core.User]
	opts   Options

	op      sync.Mutex // one login or register at a time
	loading atomic.Bool
}

// Open restores the persisted user of device, if any.
func Open(ctx context.Context, kv storage.KV, device string, opts Options) (*Manager, error) {
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = log.Wrap(nil, log.ComponentSession)
	}

	m := &Manager{device: device, opts: opts}
	m.loading.Store(true)
	defer m.loading.Store(false)

	popts := []persist.Option{persist.WithLogger(opts.Logger.Logger)}
	if opts.OnCorrupt != nil {
		popts = append(popts, persist.WithCorruptHook(opts.OnCorrupt))
	}
	user, err := persist.Open[*core.User](ctx, kv, device, core.UserKey, nil, popts...)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	m.user = user
	return m, nil
}

// User returns a copy of the resident user, or nil when logged out.
func (m *Manager) User() *core.User {
	u := m.user.Get()
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (m *Manager) State() State {
	if m.user.Get() == nil {
		return LoggedOut
	}
	return LoggedIn
}

// IsLoading reports whether a login or register is in flight.
func (m *Manager) IsLoading() bool { return m.loading.Load() }

// Login waits the configured delay and then signs in with any non-empty
// email and password, deriving the display name from the email. It returns
// false, with no state change, when a field is blank. The delay is not
// cancelled by ctx.
func (m *Manager) Login(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	return m.authenticate(ctx, log.OpLogin, email != "" && password != "", func() *core.User {
		return &core.User{Name: core.NameFromEmail(email), Email: email}
	})
}

// Register behaves like Login but takes the display name as given.
func (m *Manager) Register(ctx context.Context, name, email, password string) (bool, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	return m.authenticate(ctx, log.OpRegister, name != "" && email != "" && password != "", func() *core.User {
		return &core.User{Name: name, Email: email}
	})
}

func (m *Manager) authenticate(ctx context.Context, op string, complete bool, build func() *core.User) (bool, error) {
	m.op.Lock()
	defer m.op.Unlock()
	m.loading.Store(true)
	defer m.loading.Store(false)

	if m.opts.Delay > 0 {
		m.opts.Sleep(m.opts.Delay)
	}
	if !complete {
		return false, nil
	}

	u := build()
	u.ID = m.opts.NewID()
	u.CreatedAt = m.opts.Now().UTC()

	// The pending call resolves even if the caller went away.
	if err := m.user.Set(context.WithoutCancel(ctx), u); err != nil {
		return false, fmt.Errorf("%s: persist user: %w", op, err)
	}
	m.opts.Logger.InfoContext(ctx, "Session started",
		log.FieldDevice, m.device,
		log.FieldOperation, op)
	return true, nil
}

// OnChange registers fn to run after every login, registration or logout,
// with the new user or nil. The returned function cancels it.
func (m *Manager) OnChange(fn func(*core.User)) (cancel func()) {
	return m.user.Subscribe(fn)
}

// Logout removes the persisted user so the next visit starts logged out.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.user.Remove(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.opts.Logger.InfoContext(ctx, "Session ended",
		log.FieldDevice, m.device,
		log.FieldOperation, log.OpLogout)
	return nil
}
