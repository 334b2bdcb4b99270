package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

// remoteClient talks to the cart REST backend. The session id is attached to
// every request even when a bearer token is present: the server uses the
// pair to detect a pending guest-to-user migration and merge the carts.
type remoteClient struct {
	baseURL  string
	storeID  int64
	http     *http.Client
	sessions *session.Provider
	tokens   auth.TokenSource
	notifier *notify.Notifier
}

// NewRemoteClient builds a Client against cfg.BackendURL. Timeout semantics
// are whatever the default transport does; there is no retry or extra
// cancellation layer here.
func NewRemoteClient(cfg Config, deps Deps) (Client, error) {
	if cfg.StoreID == 0 {
		return nil, ErrNoStore
	}
	return &remoteClient{
		baseURL:  strings.TrimRight(cfg.BackendURL, "/"),
		storeID:  cfg.StoreID,
		http:     &http.Client{},
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
	}, nil
}

func (c *remoteClient) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// GetCart pulls the authoritative cart. Any transport or decode failure is
// absorbed into a synthesized empty cart for the current store; the read
// path never blocks the UI from rendering.
func (c *remoteClient) GetCart(ctx context.Context) (*Cart, error) {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("store_id", strconv.FormatInt(c.storeID, 10))
	query.Set("session_id", sessionID)

	req, err := c.newRequest(ctx, http.MethodGet, "/cart", query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("client: cart fetch failed, rendering empty cart")
		return Empty(c.storeID, sessionID), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("client: cart fetch failed, rendering empty cart")
		return Empty(c.storeID, sessionID), nil
	}

	var cart Cart
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		log.Warn().Err(err).Msg("client: cart response undecodable, rendering empty cart")
		return Empty(c.storeID, sessionID), nil
	}
	return &cart, nil
}

// AddItem posts a new line. The server resolves and snapshots the catalog
// price, so the request's display fields are hints at best. Failures
// propagate; success pulses the notifier.
func (c *remoteClient) AddItem(ctx context.Context, reqBody AddItemRequest) (*Cart, error) {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	reqBody.StoreID = c.storeID
	reqBody.SessionID = sessionID

	req, err := c.newRequest(ctx, http.MethodPost, "/cart/items", nil, reqBody)
	if err != nil {
		return nil, err
	}

	cart, err := c.doCart(req, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("client: failed to add item: %w", err)
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *remoteClient) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*Cart, error) {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("session_id", sessionID)

	body := map[string]int{"quantity": quantity}
	req, err := c.newRequest(ctx, http.MethodPut, "/cart/items/"+itemID.String(), query, body)
	if err != nil {
		return nil, err
	}

	cart, err := c.doCart(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("client: failed to update item: %w", err)
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *remoteClient) RemoveItem(ctx context.Context, itemID uuid.UUID) (*Cart, error) {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("session_id", sessionID)

	req, err := c.newRequest(ctx, http.MethodDelete, "/cart/items/"+itemID.String(), query, nil)
	if err != nil {
		return nil, err
	}

	cart, err := c.doCart(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("client: failed to remove item: %w", err)
	}
	c.notifier.Pulse()
	return cart, nil
}

func (c *remoteClient) ClearCart(ctx context.Context) error {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("store_id", strconv.FormatInt(c.storeID, 10))
	query.Set("session_id", sessionID)

	req, err := c.newRequest(ctx, http.MethodDelete, "/cart/clear", query, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: failed to clear cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("client: failed to clear cart: unexpected status %d", resp.StatusCode)
	}
	c.notifier.Pulse()
	return nil
}

// ItemCount is a lightweight projection for badges. A guest count request
// still needs an identity to key off, so the session id is resolved here
// exactly as on the full read path; failures degrade to zero.
func (c *remoteClient) ItemCount(ctx context.Context) (int, error) {
	sessionID, err := resolveOwner(ctx, c.sessions)
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("store_id", strconv.FormatInt(c.storeID, 10))
	query.Set("session_id", sessionID)

	req, err := c.newRequest(ctx, http.MethodGet, "/cart/count", query, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("client: cart count fetch failed, reporting zero")
		return 0, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("client: cart count fetch failed, reporting zero")
		return 0, nil
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("client: cart count undecodable, reporting zero")
		return 0, nil
	}
	return payload.Count, nil
}

func (c *remoteClient) doCart(req *http.Request, wantStatus int) (*Cart, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cart Cart
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart response: %w", err)
	}
	return &cart, nil
}
