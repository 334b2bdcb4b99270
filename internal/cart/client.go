package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

// ErrNoStore is returned synchronously when a client operation cannot
// resolve a store identifier.
var ErrNoStore = errors.New("client: no store id configured")

// Client is the cart surface the UI talks to. Reads never fail the caller:
// a transport problem on GetCart or ItemCount degrades to an empty result,
// because the UI must always be able to render a cart. Mutations propagate
// failures untouched, since silently dropping an add or remove would
// misinform the user, and each gesture maps to exactly one attempt (no retry
// at this layer). Every successful mutation pulses the change notifier so
// subscribed surfaces re-pull.
type Client interface {
	GetCart(ctx context.Context) (*Cart, error)
	AddItem(ctx context.Context, req AddItemRequest) (*Cart, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) (*Cart, error)
	ClearCart(ctx context.Context) error
	ItemCount(ctx context.Context) (int, error)
}

// Config selects the backend once per client. An empty BackendURL switches
// the client into mock mode, backed by an in-process store with artificial
// latency; the selection never changes per call.
type Config struct {
	StoreID     int64
	BackendURL  string
	MockLatency time.Duration
}

// Deps are the collaborators every client flavour shares.
type Deps struct {
	Sessions *session.Provider
	Tokens   auth.TokenSource
	Notifier *notify.Notifier
}

// New builds the configured client. Mock mode gets a fresh in-process store;
// use NewMockClient directly to share a store with other components (cartd
// does this in memory mode).
func New(cfg Config, deps Deps) (Client, error) {
	if cfg.StoreID == 0 {
		return nil, ErrNoStore
	}
	if cfg.BackendURL == "" {
		return NewMockClient(cfg.StoreID, NewMemoryStore(), cfg.MockLatency, deps.Sessions, deps.Notifier), nil
	}
	return NewRemoteClient(cfg, deps)
}

func resolveOwner(ctx context.Context, sessions *session.Provider) (string, error) {
	id, err := sessions.GetOrCreate(ctx)
	if err != nil {
		return "", fmt.Errorf("client: failed to resolve session identity: %w", err)
	}
	return id, nil
}
