package cart

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

// mockClient serves carts from an in-process MemoryStore when no backend is
// configured. An artificial delay before every operation emulates network
// latency so UI behaviour under async completion stays realistic in local
// development.
type mockClient struct {
	storeID  int64
	store    *MemoryStore
	latency  time.Duration
	sessions *session.Provider
	notifier *notify.Notifier
}

func NewMockClient(storeID int64, store *MemoryStore, latency time.Duration, sessions *session.Provider, notifier *notify.Notifier) Client {
	return &mockClient{
		storeID:  storeID,
		store:    store,
		latency:  latency,
		sessions: sessions,
		notifier: notifier,
	}
}

func (c *mockClient) delay(ctx context.Context) error {
	if c.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(c.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *mockClient) GetCart(ctx context.Context) (*Cart, error) {
	if err := c.delay(ctx); err != nil {
		return nil, err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	return c.store.GetCart(ctx, c.storeID, owner)
}

func (c *mockClient) AddItem(ctx context.Context, req AddItemRequest) (*Cart, error) {
	if err := c.delay(ctx); err != nil {
		return nil, err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	cart, err := c.store.AddItem(ctx, c.storeID, owner, AddLineParams{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Name:      req.Name,
		ImageURL:  req.ImageURL,
		Price:     req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return nil, err
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *mockClient) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*Cart, error) {
	if err := c.delay(ctx); err != nil {
		return nil, err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	cart, err := c.store.UpdateItem(ctx, owner, itemID, quantity)
	if err != nil {
		return nil, err
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *mockClient) RemoveItem(ctx context.Context, itemID uuid.UUID) (*Cart, error) {
	if err := c.delay(ctx); err != nil {
		return nil, err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	cart, err := c.store.RemoveItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *mockClient) ClearCart(ctx context.Context) error {
	if err := c.delay(ctx); err != nil {
		return err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return err
	}
	if err := c.store.Clear(ctx, c.storeID, owner); err != nil {
		return err
	}
	c.notifier.Pulse()
	return nil
}

func (c *mockClient) ItemCount(ctx context.Context) (int, error) {
	if err := c.delay(ctx); err != nil {
		return 0, err
	}
	owner, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return 0, err
	}
	return c.store.Count(ctx, owner)
}
