package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

// AddLineParams is the resolved input for creating or incrementing a cart
// line. The price here is whatever the caller considers authoritative at add
// time: the server's catalog price in cartd, the request's display price in
// mock mode. Once a line exists its snapshot is never overwritten.
type AddLineParams struct {
	ProductID int64
	VariantID *int64
	Name      string
	ImageURL  string
	Price     decimal.Decimal
	Quantity  int
}

// MemoryStore holds carts keyed by owner (guest session id or user id) in
// process memory. It is the mock backend for local development and the cart
// half of cartd's memory mode. A single mutex guards the whole collection;
// every mutation recomputes the derived totals before returning.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (s *MemoryStore) findOrCreate(storeID int64, owner string) *Cart {
	if c, ok := s.carts[owner]; ok {
		return c
	}
	c := Empty(storeID, owner)
	s.carts[owner] = c
	return c
}

// GetCart returns the owner's cart, or an empty cart when none exists yet.
// A missing cart is not an error on the read path.
func (s *MemoryStore) GetCart(_ context.Context, storeID int64, owner string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[owner]; ok {
		return copyCart(c), nil
	}
	return Empty(storeID, owner), nil
}

// AddItem finds or creates the owner's cart, then finds or creates a line by
// product identity. Variant selection is collapsed into the product for
// price purposes: adding the same product again increments quantity and
// leaves the existing PriceSnapshot untouched.
func (s *MemoryStore) AddItem(_ context.Context, storeID int64, owner string, p AddLineParams) (*Cart, error) {
	if p.Quantity < 1 {
		return nil, fmt.Errorf("store: quantity must be at least 1, got %d", p.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findOrCreate(storeID, owner)
	for i := range c.Items {
		if c.Items[i].ProductID == p.ProductID {
			c.Items[i].Quantity += p.Quantity
			s.touch(c)
			return copyCart(c), nil
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("store: failed to generate item id: %w", err)
	}
	c.Items = append(c.Items, Item{
		ID:            id,
		ProductID:     p.ProductID,
		VariantID:     p.VariantID,
		Name:          p.Name,
		ImageURL:      p.ImageURL,
		PriceSnapshot: p.Price,
		Quantity:      p.Quantity,
		AddedAt:       time.Now().UTC(),
	})
	s.touch(c)
	return copyCart(c), nil
}

// UpdateItem sets the quantity of an existing line.
func (s *MemoryStore) UpdateItem(_ context.Context, owner string, itemID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("store: quantity must be at least 1, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[owner]
	if !ok {
		return nil, ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			s.touch(c)
			return copyCart(c), nil
		}
	}
	return nil, ErrItemNotFound
}

// RemoveItem deletes a line from the owner's cart.
func (s *MemoryStore) RemoveItem(_ context.Context, owner string, itemID uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[owner]
	if !ok {
		return nil, ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			s.touch(c)
			return copyCart(c), nil
		}
	}
	return nil, ErrItemNotFound
}

// Clear empties the owner's cart. Clearing an absent cart is a no-op.
func (s *MemoryStore) Clear(_ context.Context, storeID int64, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[owner]
	if !ok {
		return nil
	}
	c.Items = c.Items[:0]
	s.touch(c)
	return nil
}

// Count returns the owner's derived item count without copying the cart.
func (s *MemoryStore) Count(_ context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[owner]; ok {
		return c.ItemCount, nil
	}
	return 0, nil
}

// Merge folds the cart owned by from into the cart owned by to, then drops
// the from cart. Quantities of lines present on both sides are summed into
// the to side's line, keeping the to side's PriceSnapshot; lines only the
// guest had move over with their original snapshot. This is the server-side
// half of the login migration.
func (s *MemoryStore) Merge(_ context.Context, from, to string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.carts[from]
	if !ok || len(src.Items) == 0 {
		delete(s.carts, from)
		if dst, ok := s.carts[to]; ok {
			return copyCart(dst), nil
		}
		return nil, ErrCartNotFound
	}

	dst := s.findOrCreate(src.StoreID, to)
outer:
	for _, item := range src.Items {
		for i := range dst.Items {
			if dst.Items[i].ProductID == item.ProductID {
				dst.Items[i].Quantity += item.Quantity
				continue outer
			}
		}
		dst.Items = append(dst.Items, item)
	}
	delete(s.carts, from)
	s.touch(dst)
	return copyCart(dst), nil
}

func (s *MemoryStore) touch(c *Cart) {
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
}

// copyCart returns a deep enough copy that callers cannot reach back into
// the store's state through the returned slice.
func copyCart(c *Cart) *Cart {
	out := *c
	out.Items = append([]Item(nil), c.Items...)
	return &out
}
