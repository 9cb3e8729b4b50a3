package shell

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"lifebalance/internal/core"
	"lifebalance/internal/section"
	"lifebalance/internal/session"
	"lifebalance/internal/storage"
)

// Deps configure the collaborators of a workspace.
type Deps struct {
	Section section.Deps
	Session session.Options
}

// Workspace is everything one device sees: its session, the three record
// sections and the active page. Callers serialize access per device; see
// Registry.
type Workspace struct {
	Device       string
	Session      *session.Manager
	Financial    *section.Financial
	Professional *section.Professional
	Wellness     *section.Wellness

	// serial is held by Registry.With for the length of a request.
	serial sync.Mutex

	mu     sync.Mutex
	active Section
	closed atomic.Bool
	unsub  func()
}

// OpenWorkspace restores the session and collections of device.
func OpenWorkspace(ctx context.Context, kv storage.KV, device string, deps Deps) (*Workspace, error) {
	sess, err := session.Open(ctx, kv, device, deps.Session)
	if err != nil {
		return nil, err
	}
	fin, err := section.OpenFinancial(ctx, kv, device, deps.Section)
	if err != nil {
		return nil, err
	}
	prof, err := section.OpenProfessional(ctx, kv, device, deps.Section)
	if err != nil {
		return nil, err
	}
	well, err := section.OpenWellness(ctx, kv, device, deps.Section)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		Device:       device,
		Session:      sess,
		Financial:    fin,
		Professional: prof,
		Wellness:     well,
		active:       Dashboard,
	}
	w.unsub = sess.OnChange(func(u *core.User) {
		if u == nil {
			w.Reset()
		}
	})
	return w, nil
}

// Navigate makes s the active section.
func (w *Workspace) Navigate(s Section) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = s
}

func (w *Workspace) Active() Section {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// RunQuickAction navigates to the action's target section and, for actions
// that add a record, opens that section's form.
func (w *Workspace) RunQuickAction(id string) (Section, error) {
	a, ok := lookupQuickAction(id)
	if !ok {
		return w.Active(), fmt.Errorf("%w: %q", ErrUnknownAction, id)
	}
	w.Navigate(a.Target)
	if !a.Compose {
		return a.Target, nil
	}
	switch a.Target {
	case Financial:
		w.Financial.Start()
		w.Financial.UpdateDraft(func(d *core.FinancialDraft) { d.Type = core.Expense })
	case Wellness:
		w.Wellness.Start()
		w.Wellness.UpdateDraft(func(d *core.WellnessDraft) { d.Type = core.Meditation })
	}
	return a.Target, nil
}

// Reset returns to the dashboard with every form closed. It runs on logout.
func (w *Workspace) Reset() {
	w.Navigate(Dashboard)
	w.Financial.Cancel()
	w.Professional.Cancel()
	w.Wellness.Cancel()
}

// Close marks the workspace as retired. It is safe to call more than once
// and returns true only for the call that closed it.
func (w *Workspace) Close() bool {
	if !w.closed.CompareAndSwap(false, true) {
		return false
	}
	if w.unsub != nil {
		w.unsub()
	}
	return true
}

func (w *Workspace) Closed() bool { return w.closed.Load() }
