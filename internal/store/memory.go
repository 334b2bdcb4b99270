package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
)

// MemoryStore serves cartd's development mode. Carts live in the same
// arithmetic the client mock uses; products and orders sit in maps next to
// it.
type MemoryStore struct {
	carts *cart.MemoryStore

	mu       sync.Mutex
	products map[int64]Product
	orders   map[string]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    cart.NewMemoryStore(),
		products: make(map[int64]Product),
		orders:   make(map[string]*Order),
	}
}

// Carts exposes the underlying cart store so a mock client can share it in
// single-process setups.
func (s *MemoryStore) Carts() *cart.MemoryStore {
	return s.carts
}

func (s *MemoryStore) GetCart(ctx context.Context, storeID int64, owner string) (*cart.Cart, error) {
	return s.carts.GetCart(ctx, storeID, owner)
}

func (s *MemoryStore) AddItem(ctx context.Context, storeID int64, owner string, productID int64, variantID *int64, quantity int) (*cart.Cart, error) {
	s.mu.Lock()
	product, ok := s.products[productID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrProductNotFound
	}

	return s.carts.AddItem(ctx, storeID, owner, cart.AddLineParams{
		ProductID: product.ID,
		VariantID: variantID,
		Name:      product.Name,
		ImageURL:  product.ImageURL,
		Price:     product.Price,
		Quantity:  quantity,
	})
}

func (s *MemoryStore) UpdateItem(ctx context.Context, owner string, itemID uuid.UUID, quantity int) (*cart.Cart, error) {
	return s.carts.UpdateItem(ctx, owner, itemID, quantity)
}

func (s *MemoryStore) RemoveItem(ctx context.Context, owner string, itemID uuid.UUID) (*cart.Cart, error) {
	return s.carts.RemoveItem(ctx, owner, itemID)
}

func (s *MemoryStore) ClearCart(ctx context.Context, storeID int64, owner string) error {
	return s.carts.Clear(ctx, storeID, owner)
}

func (s *MemoryStore) Count(ctx context.Context, owner string) (int, error) {
	return s.carts.Count(ctx, owner)
}

func (s *MemoryStore) Merge(ctx context.Context, fromOwner, toOwner string) error {
	_, err := s.carts.Merge(ctx, fromOwner, toOwner)
	if err != nil && !isNoCart(err) {
		return err
	}
	return nil
}

// CreateOrder snapshots the user's cart into an order. The cart is left
// untouched; clearing it is the caller's explicit follow-up step.
func (s *MemoryStore) CreateOrder(ctx context.Context, userID string, params CheckoutParams) (*Order, error) {
	userCart, err := s.carts.GetCart(ctx, params.StoreID, userID)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("store: failed to generate order id: %w", err)
	}

	now := time.Now().UTC()
	order := &Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(now),
		StoreID:         params.StoreID,
		UserID:          userID,
		CustomerEmail:   params.CustomerEmail,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
		Notes:           params.Notes,
		Status:          StatusPending,
		Total:           userCart.Subtotal,
		CreatedAt:       now,
	}
	for _, line := range userCart.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("store: failed to generate order item id: %w", err)
		}
		order.Items = append(order.Items, OrderItem{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.PriceSnapshot,
			Quantity:  line.Quantity,
		})
	}

	s.mu.Lock()
	s.orders[order.OrderNumber] = order
	s.mu.Unlock()
	return order, nil
}

func (s *MemoryStore) OrderByNumber(_ context.Context, orderNumber, email string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderNumber]
	if !ok || !equalFoldEmail(order.CustomerEmail, email) {
		return nil, ErrOrderNotFound
	}
	out := *order
	out.Items = append([]OrderItem(nil), order.Items...)
	return &out, nil
}

func (s *MemoryStore) UpsertProduct(_ context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func isNoCart(err error) bool {
	return errors.Is(err, cart.ErrCartNotFound)
}
