// Package checkout converts a cart into an order. Unlike cart mutation,
// checkout is never permitted for pure guests: a missing or rejected
// credential fails fast and redirects to the login flow instead of
// attempting the call with a session id alone.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
)

var (
	// ErrAuthenticationRequired signals that the caller must log in before
	// checking out. It fires both when no credential is present and when
	// the server rejects the one we sent.
	ErrAuthenticationRequired = errors.New("checkout: authentication required")

	// ErrOrderNotFound collapses "no such order" and "email does not
	// match" into one answer, so the lookup cannot be used to enumerate
	// orders.
	ErrOrderNotFound = errors.New("checkout: order not found")
)

// Request is the checkout payload. ReturnURL is where the login flow should
// send the user back to when authentication is missing.
type Request struct {
	StoreID         int64  `json:"store_id" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address" validate:"required"`
	Notes           string `json:"notes,omitempty"`
	ReturnURL       string `json:"-"`
}

// Order is the canonical checkout result. Server responses arrive in loose
// shapes (see orderPayload); they are normalized into this struct at the
// boundary and nothing else in the system sees the raw fields.
type Order struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	CustomerEmail string          `json:"customer_email"`
	Message       string          `json:"message,omitempty"`
}

// OrderDetails is the read-model returned by the order lookup.
type OrderDetails struct {
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	CustomerEmail string          `json:"customer_email"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem carries the denormalized price/quantity copy pinned at checkout
// time; later catalog changes never reach it.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Navigator is the navigation side effect fired on authentication failures.
// The embedding surface decides what "go log in, then come back here" means,
// typically a redirect carrying the return URL.
type Navigator interface {
	ToLogin(returnURL string)
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(returnURL string)

func (f NavigatorFunc) ToLogin(returnURL string) { f(returnURL) }

// Orchestrator drives checkout and order lookup against the backend.
type Orchestrator struct {
	baseURL   string
	http      *http.Client
	tokens    auth.TokenSource
	navigator Navigator
}

func NewOrchestrator(baseURL string, tokens auth.TokenSource, navigator Navigator) *Orchestrator {
	return &Orchestrator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		tokens:    tokens,
		navigator: navigator,
	}
}

// Checkout creates an order from the current cart. Success does not clear
// the cart: "checkout succeeded" and "cart cleared" are two separate steps
// and the caller owns the second one.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Order, error) {
	token, err := o.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		o.navigator.ToLogin(req.ReturnURL)
		return nil, ErrAuthenticationRequired
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/orders/checkout", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Credential present but rejected or expired; same handoff as
		// having none.
		o.navigator.ToLogin(req.ReturnURL)
		return nil, ErrAuthenticationRequired
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("checkout: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw orderPayload
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("checkout: failed to decode response: %w", err)
	}
	return raw.normalize()
}

// OrderByNumber looks an order up by its human-readable number. The email
// must match; a mismatch is indistinguishable from a missing order.
func (o *Orchestrator) OrderByNumber(ctx context.Context, orderNumber, email string) (*OrderDetails, error) {
	u := fmt.Sprintf("%s/orders/%s?email=%s", o.baseURL, url.PathEscape(orderNumber), url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to build request: %w", err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout: order lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return nil, ErrOrderNotFound
	default:
		return nil, fmt.Errorf("checkout: order lookup failed with status %d", resp.StatusCode)
	}

	var details OrderDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("checkout: failed to decode order details: %w", err)
	}
	return &details, nil
}
