// Package store is the authoritative cart and order storage behind cartd.
// Two implementations exist: an in-memory store for development, built on
// the same arithmetic the client mock uses, and a PostgreSQL store.
package store

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
)

var (
	ErrProductNotFound = errors.New("store: product not found")
	ErrEmptyCart       = errors.New("store: cart has no items")
	// ErrOrderNotFound covers both a missing order and an email mismatch;
	// callers cannot tell the two apart.
	ErrOrderNotFound = errors.New("store: order not found")
)

// Product is the minimal catalog entry the cart layer needs: something to
// resolve a price from at add time. The resolved price is snapshotted into
// the line; later catalog updates never rewrite existing lines.
type Product struct {
	ID       int64           `json:"id"`
	StoreID  int64           `json:"store_id"`
	Name     string          `json:"name"`
	ImageURL string          `json:"image_url,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// Order is created transactionally from a cart at checkout and carries a
// denormalized copy of each line's price and quantity. Creating an order
// does not clear the cart; callers treat "checkout succeeded" and "cart
// cleared" as two separate steps.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	StoreID         int64           `json:"store_id"`
	UserID          string          `json:"user_id"`
	CustomerEmail   string          `json:"customer_email"`
	ShippingAddress string          `json:"shipping_address"`
	BillingAddress  string          `json:"billing_address"`
	Notes           string          `json:"notes,omitempty"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CheckoutParams is what the checkout endpoint resolves before asking the
// store to create an order from the user's cart.
type CheckoutParams struct {
	StoreID         int64
	CustomerEmail   string
	ShippingAddress string
	BillingAddress  string
	Notes           string
}

const StatusPending = "PENDING"

// Store is the full server-side contract: cart CRUD keyed by owner (guest
// session id or user id), the guest-to-user merge, checkout, order lookup,
// and just enough catalog to price lines at add time.
type Store interface {
	GetCart(ctx context.Context, storeID int64, owner string) (*cart.Cart, error)
	AddItem(ctx context.Context, storeID int64, owner string, productID int64, variantID *int64, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, owner string, itemID uuid.UUID, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, owner string, itemID uuid.UUID) (*cart.Cart, error)
	ClearCart(ctx context.Context, storeID int64, owner string) error
	Count(ctx context.Context, owner string) (int, error)
	Merge(ctx context.Context, fromOwner, toOwner string) error

	CreateOrder(ctx context.Context, userID string, params CheckoutParams) (*Order, error)
	OrderByNumber(ctx context.Context, orderNumber, email string) (*Order, error)

	UpsertProduct(ctx context.Context, p Product) error
}

// newOrderNumber builds the human-readable order number customers quote in
// support requests, e.g. ORD-20260829-K3F9QZ.
func newOrderNumber(now time.Time) string {
	const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = digits[rand.Intn(len(digits))]
	}
	return "ORD-" + now.Format("20060102") + "-" + string(suffix[:])
}

func equalFoldEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
