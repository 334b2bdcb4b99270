// Package auth handles the client side of the credential handoff: reading
// and writing the persisted bearer token. It does not implement any
// authentication mechanics itself; the token is opaque to this layer.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

// TokenKey is the storage key the bearer credential lives under.
const TokenKey = "auth_token"

// TokenSource yields the current bearer credential. An empty string means
// the caller is unauthenticated; that is not an error at this layer.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StoreTokenSource reads the credential from the same client-local storage
// the session identity lives in.
type StoreTokenSource struct {
	store session.Store
}

func NewStoreTokenSource(store session.Store) *StoreTokenSource {
	return &StoreTokenSource{store: store}
}

func (s *StoreTokenSource) Token(ctx context.Context) (string, error) {
	token, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("auth: failed to read token: %w", err)
	}
	return token, nil
}

// SetToken persists the credential, e.g. after a login response.
func (s *StoreTokenSource) SetToken(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("auth: failed to persist token: %w", err)
	}
	return nil
}

// ClearToken removes the credential on logout.
func (s *StoreTokenSource) ClearToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("auth: failed to clear token: %w", err)
	}
	return nil
}

// StaticTokenSource returns a fixed token; handy for tests and the scenario
// runner.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}
