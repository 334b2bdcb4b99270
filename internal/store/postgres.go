package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
)

// PostgresStore is the production storage behind cartd. Totals are derived
// in Go after loading the lines, the same way the memory store derives them,
// so the two backends agree on the invariants.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) GetCart(ctx context.Context, storeID int64, owner string) (*cart.Cart, error) {
	c, err := s.loadCart(ctx, s.db, storeID, owner)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return cart.Empty(storeID, owner), nil
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) AddItem(ctx context.Context, storeID int64, owner string, productID int64, variantID *int64, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("store: quantity must be at least 1, got %d", quantity)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var product Product
	err = tx.QueryRow(ctx,
		`SELECT id, store_id, name, COALESCE(image_url, ''), price FROM products WHERE id = $1`,
		productID,
	).Scan(&product.ID, &product.StoreID, &product.Name, &product.ImageURL, &product.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: failed to look up product %d: %w", productID, err)
	}

	cartID, err := s.getOrCreateCart(ctx, tx, storeID, owner)
	if err != nil {
		return nil, err
	}

	itemID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("store: failed to generate item id: %w", err)
	}

	// The conflict branch increments quantity and leaves price_snapshot
	// untouched; the snapshot is immutable for the life of the line.
	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, name, image_url, price_snapshot, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, itemID, cartID, product.ID, variantID, product.Name, product.ImageURL, product.Price, quantity, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("store: failed to upsert cart item: %w", err)
	}

	if err := s.touchCart(ctx, tx, cartID); err != nil {
		return nil, err
	}

	c, err := s.loadCart(ctx, tx, storeID, owner)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, owner string, itemID uuid.UUID, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("store: quantity must be at least 1, got %d", quantity)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE cart_items SET quantity = $1
		WHERE id = $2 AND cart_id = (SELECT id FROM carts WHERE owner_id = $3)
	`, quantity, itemID, owner)
	if err != nil {
		return nil, fmt.Errorf("store: failed to update cart item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, cart.ErrItemNotFound
	}
	return s.cartByOwner(ctx, owner)
}

func (s *PostgresStore) RemoveItem(ctx context.Context, owner string, itemID uuid.UUID) (*cart.Cart, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE id = $1 AND cart_id = (SELECT id FROM carts WHERE owner_id = $2)
	`, itemID, owner)
	if err != nil {
		return nil, fmt.Errorf("store: failed to remove cart item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, cart.ErrItemNotFound
	}
	return s.cartByOwner(ctx, owner)
}

func (s *PostgresStore) ClearCart(ctx context.Context, storeID int64, owner string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE owner_id = $1 AND store_id = $2)
	`, owner, storeID)
	if err != nil {
		return fmt.Errorf("store: failed to clear cart for owner %s: %w", owner, err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity), 0)
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.owner_id = $1
	`, owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: failed to count cart items for owner %s: %w", owner, err)
	}
	return count, nil
}

// Merge folds the guest cart into the user cart inside one transaction.
// Lines both sides have get their quantities summed on the user side,
// keeping the user side's snapshot; guest-only lines move over unchanged.
func (s *PostgresStore) Merge(ctx context.Context, fromOwner, toOwner string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var guestCartID uuid.UUID
	var guestStoreID int64
	err = tx.QueryRow(ctx, `SELECT id, store_id FROM carts WHERE owner_id = $1`, fromOwner).
		Scan(&guestCartID, &guestStoreID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nothing to migrate.
			return nil
		}
		return fmt.Errorf("store: failed to load guest cart for merge: %w", err)
	}

	var userCartID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE owner_id = $1`, toOwner).Scan(&userCartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The user has no cart yet; adopt the guest cart wholesale.
			_, err = tx.Exec(ctx, `UPDATE carts SET owner_id = $1, updated_at = $2 WHERE id = $3`,
				toOwner, time.Now().UTC(), guestCartID)
			if err != nil {
				return fmt.Errorf("store: failed to adopt guest cart: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("store: failed to commit transaction: %w", err)
			}
			log.Debug().Str("owner", toOwner).Msg("store: guest cart adopted by user")
			return nil
		}
		return fmt.Errorf("store: failed to load user cart for merge: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE cart_items u SET quantity = u.quantity + g.quantity
		FROM cart_items g
		WHERE u.cart_id = $1 AND g.cart_id = $2 AND u.product_id = g.product_id
	`, userCartID, guestCartID)
	if err != nil {
		return fmt.Errorf("store: failed to sum overlapping cart lines: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM cart_items g
		WHERE g.cart_id = $1
		  AND EXISTS (SELECT 1 FROM cart_items u WHERE u.cart_id = $2 AND u.product_id = g.product_id)
	`, guestCartID, userCartID)
	if err != nil {
		return fmt.Errorf("store: failed to drop merged guest lines: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE cart_items SET cart_id = $1 WHERE cart_id = $2`, userCartID, guestCartID)
	if err != nil {
		return fmt.Errorf("store: failed to move guest-only lines: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID)
	if err != nil {
		return fmt.Errorf("store: failed to delete guest cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	log.Debug().Str("owner", toOwner).Msg("store: guest cart merged into user cart")
	return nil
}

// CreateOrder snapshots the user's cart into an order transactionally. The
// cart itself is not cleared here.
func (s *PostgresStore) CreateOrder(ctx context.Context, userID string, params CheckoutParams) (*Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userCart, err := s.loadCart(ctx, tx, params.StoreID, userID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
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

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, store_id, user_id, customer_email, shipping_address, billing_address, notes, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.OrderNumber, order.StoreID, order.UserID, order.CustomerEmail,
		order.ShippingAddress, order.BillingAddress, order.Notes, order.Status, order.Total, order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert order: %w", err)
	}

	for _, line := range userCart.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("store: failed to generate order item id: %w", err)
		}
		item := OrderItem{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.PriceSnapshot,
			Quantity:  line.Quantity,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.OrderID, item.ProductID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("store: failed to insert order item for order %s: %w", orderID, err)
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	log.Info().Str("order_number", order.OrderNumber).Str("user_id", userID).Msg("store: order created")
	return order, nil
}

func (s *PostgresStore) OrderByNumber(ctx context.Context, orderNumber, email string) (*Order, error) {
	var order Order
	err := s.db.QueryRow(ctx, `
		SELECT id, order_number, store_id, user_id, customer_email, shipping_address, billing_address, COALESCE(notes, ''), status, total, created_at
		FROM orders
		WHERE order_number = $1 AND lower(customer_email) = lower($2)
	`, orderNumber, email).Scan(
		&order.ID, &order.OrderNumber, &order.StoreID, &order.UserID, &order.CustomerEmail,
		&order.ShippingAddress, &order.BillingAddress, &order.Notes, &order.Status, &order.Total, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: failed to select order %s: %w", orderNumber, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, name, price, quantity
		FROM order_items WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query order items for %s: %w", orderNumber, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("store: failed to scan order item for %s: %w", orderNumber, err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating order items for %s: %w", orderNumber, err)
	}
	return &order, nil
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p Product) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO products (id, store_id, name, image_url, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url, price = EXCLUDED.price
	`, p.ID, p.StoreID, p.Name, p.ImageURL, p.Price)
	if err != nil {
		return fmt.Errorf("store: failed to upsert product %d: %w", p.ID, err)
	}
	return nil
}

// getOrCreateCart inserts the owner's cart row, racing gracefully: a unique
// violation means another request created it first, so fall through to the
// select.
func (s *PostgresStore) getOrCreateCart(ctx context.Context, q querier, storeID int64, owner string) (uuid.UUID, error) {
	cartID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: failed to generate cart id: %w", err)
	}

	now := time.Now().UTC()
	_, err = q.Exec(ctx, `
		INSERT INTO carts (id, store_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, cartID, storeID, owner, now)
	if err == nil {
		return cartID, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return uuid.Nil, fmt.Errorf("store: failed to insert cart for owner %s: %w", owner, err)
	}

	err = q.QueryRow(ctx, `SELECT id FROM carts WHERE owner_id = $1`, owner).Scan(&cartID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: failed to select existing cart for owner %s: %w", owner, err)
	}
	return cartID, nil
}

func (s *PostgresStore) touchCart(ctx context.Context, q querier, cartID uuid.UUID) error {
	_, err := q.Exec(ctx, `UPDATE carts SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), cartID)
	if err != nil {
		return fmt.Errorf("store: failed to touch cart %s: %w", cartID, err)
	}
	return nil
}

func (s *PostgresStore) cartByOwner(ctx context.Context, owner string) (*cart.Cart, error) {
	var storeID int64
	err := s.db.QueryRow(ctx, `SELECT store_id FROM carts WHERE owner_id = $1`, owner).Scan(&storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("store: failed to select cart for owner %s: %w", owner, err)
	}
	return s.loadCart(ctx, s.db, storeID, owner)
}

func (s *PostgresStore) loadCart(ctx context.Context, q querier, storeID int64, owner string) (*cart.Cart, error) {
	var cartID uuid.UUID
	var updatedAt time.Time
	err := q.QueryRow(ctx, `SELECT id, updated_at FROM carts WHERE owner_id = $1`, owner).Scan(&cartID, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("store: failed to select cart for owner %s: %w", owner, err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, product_id, variant_id, name, COALESCE(image_url, ''), price_snapshot, quantity, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query cart items for owner %s: %w", owner, err)
	}
	defer rows.Close()

	c := cart.Empty(storeID, owner)
	c.UpdatedAt = updatedAt
	for rows.Next() {
		var item cart.Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Name, &item.ImageURL,
			&item.PriceSnapshot, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("store: failed to scan cart item for owner %s: %w", owner, err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating cart items for owner %s: %w", owner, err)
	}
	c.Recalculate()
	return c, nil
}
