package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/rs/zerolog/log"
)

// SessionKey is the storage key the guest cart identity lives under.
const SessionKey = "cart_session_id"

// Provider hands out the anonymous session identifier that keys a guest's
// cart. The identifier is created lazily on first use, survives restarts as
// long as the backing store is durable, and is deleted only by Clear, which
// the migration coordinator calls after a login merge has had its chance to
// read it.
type Provider struct {
	store Store
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// GetOrCreate returns the stored session identifier, minting and persisting
// a new one when none exists. Two calls without an intervening Clear return
// the same value.
func (p *Provider) GetOrCreate(ctx context.Context) (string, error) {
	existing, err := p.store.Get(ctx, SessionKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("session: failed to read identifier: %w", err)
	}

	id := newSessionID()
	if err := p.store.Set(ctx, SessionKey, id); err != nil {
		// Degraded mode: the id only lives as long as this call chain.
		// Not fatal; the caller still gets a usable identity.
		log.Warn().Err(err).Msg("session: identifier not persisted, storage unavailable")
	}
	return id, nil
}

// Clear removes the stored identifier. The next GetOrCreate mints a fresh
// one.
func (p *Provider) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("session: failed to clear identifier: %w", err)
	}
	return nil
}

// newSessionID concatenates two independent pseudo-random base-36 fragments.
// Collisions are negligible without reaching for a cryptographic RNG; the
// identifier is opaque and grants nothing by itself.
func newSessionID() string {
	return strconv.FormatInt(rand.Int63(), 36) + strconv.FormatInt(rand.Int63(), 36)
}
