package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Item is a single cart line. PriceSnapshot is captured when the line is
// first created and never rewritten afterwards, so catalog price changes do
// not retroactively alter a cart. Name and ImageURL are display metadata
// carried for the UI; the cart layer does not re-validate them against the
// catalog.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     int64           `json:"product_id"`
	VariantID     *int64          `json:"variant_id,omitempty"`
	Name          string          `json:"name"`
	ImageURL      string          `json:"image_url,omitempty"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
	Quantity      int             `json:"quantity"`
	AddedAt       time.Time       `json:"added_at"`
}

// Cart is identified by (store, owner), where owner is either a guest
// session id or a user id. ItemCount and Subtotal are derived and must be
// recomputed after every mutation:
//
//	ItemCount == sum of Quantity over Items
//	Subtotal  == sum of PriceSnapshot * Quantity over Items
type Cart struct {
	StoreID   int64           `json:"store_id"`
	OwnerID   string          `json:"owner_id"`
	Items     []Item          `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Empty returns a synthesized empty cart for the given store and owner. The
// read path substitutes this on transport failure so the UI can always
// render something.
func Empty(storeID int64, ownerID string) *Cart {
	return &Cart{
		StoreID:  storeID,
		OwnerID:  ownerID,
		Items:    []Item{},
		Subtotal: decimal.Zero,
	}
}

// Recalculate recomputes the derived totals from the line items.
func (c *Cart) Recalculate() {
	count := 0
	subtotal := decimal.Zero
	for i := range c.Items {
		count += c.Items[i].Quantity
		subtotal = subtotal.Add(c.Items[i].PriceSnapshot.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity))))
	}
	c.ItemCount = count
	c.Subtotal = subtotal
}

// AddItemRequest is what the UI hands to Client.AddItem. Price, Name and
// ImageURL are only consulted in mock mode, where there is no server to
// resolve the catalog; the remote backend ignores them and snapshots its own
// price.
type AddItemRequest struct {
	StoreID   int64           `json:"store_id"`
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Name      string          `json:"name,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}
