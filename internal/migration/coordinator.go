// Package migration sequences the handoff of a guest cart's identity around
// login and logout. It never touches the network itself; it only orders
// client-local state changes and notification pulses.
package migration

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

const (
	// DefaultRepulseDelay covers subscribers that fetch slowly or mount
	// after the first pulse.
	DefaultRepulseDelay = 500 * time.Millisecond
	// DefaultClearDelay is how long the guest identity stays readable
	// after a login pulse, giving the server time to observe it during
	// the merge.
	DefaultClearDelay = 1500 * time.Millisecond
)

// Coordinator guarantees two things around a login: the guest cart is not
// silently lost, and the guest identity does not leak into the user's later
// requests. Ordering is enforced by real-time delay, not by a completion
// acknowledgement from the server, so the contract is best-effort. If the
// server-side merge fails, the identity deletion is not rolled back.
type Coordinator struct {
	sessions     *session.Provider
	notifier     *notify.Notifier
	repulseDelay time.Duration
	clearDelay   time.Duration
}

// Option adjusts coordinator timing; tests shrink the windows.
type Option func(*Coordinator)

func WithRepulseDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.repulseDelay = d }
}

func WithClearDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.clearDelay = d }
}

func NewCoordinator(sessions *session.Provider, notifier *notify.Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:     sessions,
		notifier:     notifier,
		repulseDelay: DefaultRepulseDelay,
		clearDelay:   DefaultClearDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClearLocalCart is the logout/user-switch path, where no merge is wanted.
// The guest identity is discarded immediately, then subscribers are pulsed
// twice, once right away and once after a short delay, so surfaces that
// refresh synchronously and surfaces that refresh later both re-fetch a
// fresh anonymous cart.
func (c *Coordinator) ClearLocalCart(ctx context.Context) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return err
	}
	c.notifier.Pulse()
	time.AfterFunc(c.repulseDelay, c.notifier.Pulse)
	log.Debug().Msg("migration: local cart identity cleared")
	return nil
}

// TriggerCartUpdate is the login/registration path, where the server merge
// is wanted. Subscribers are pulsed immediately and again after the re-pulse
// delay; each re-fetch carries both the auth credential and the still-present
// session id, which is what lets the server merge the guest cart into the
// user's. Only after the longer clear delay is the guest identity discarded.
// Merge first, delete identity second: deleting before the server has read
// the id would orphan the guest cart.
func (c *Coordinator) TriggerCartUpdate() {
	c.notifier.Pulse()
	time.AfterFunc(c.repulseDelay, c.notifier.Pulse)
	time.AfterFunc(c.clearDelay, func() {
		if err := c.sessions.Clear(context.Background()); err != nil {
			log.Warn().Err(err).Msg("migration: failed to clear session identity after merge window")
			return
		}
		log.Debug().Msg("migration: session identity cleared after merge window")
	})
}
