package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/store"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/transport"
)

type fixture struct {
	server *httptest.Server
	store  *store.MemoryStore
	jwt    *auth.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memStore := store.NewMemoryStore()
	require.NoError(t, memStore.UpsertProduct(context.Background(), store.Product{
		ID: 7, StoreID: 1, Name: "Canvas Tote Bag", Price: decimal.RequireFromString("10.00"),
	}))
	require.NoError(t, memStore.UpsertProduct(context.Background(), store.Product{
		ID: 2, StoreID: 1, Name: "Hoodie", Price: decimal.RequireFromString("49.00"),
	}))

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	server := httptest.NewServer(transport.NewRouter(memStore, jwtManager))
	t.Cleanup(server.Close)

	return &fixture{server: server, store: memStore, jwt: jwtManager}
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeCart(t *testing.T, resp *http.Response) *cart.Cart {
	t.Helper()
	defer resp.Body.Close()
	var c cart.Cart
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	return &c
}

func TestCartRoutes_GuestFlow(t *testing.T) {
	f := newFixture(t)
	const sess = "guest-abc123"

	resp := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"store_id": 1, "product_id": 7, "quantity": 2, "session_id": sess,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decodeCart(t, resp)
	assert.Equal(t, 2, c.ItemCount)
	assert.True(t, c.Subtotal.Equal(decimal.RequireFromString("20.00")))

	resp = f.do(t, http.MethodGet, "/cart?store_id=1&session_id="+sess, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeCart(t, resp)

	if diff := cmp.Diff(c, fetched); diff != "" {
		t.Errorf("mutation response and subsequent read disagree (-want +got):\n%s", diff)
	}

	resp = f.do(t, http.MethodGet, "/cart/count?session_id="+sess, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	resp.Body.Close()
	assert.Equal(t, 2, count.Count)

	itemID := fetched.Items[0].ID.String()

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/cart/items/%s?session_id=%s", itemID, sess),
		map[string]int{"quantity": 5}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decodeCart(t, resp)
	assert.Equal(t, 5, c.ItemCount)

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/cart/items/%s?session_id=%s", itemID, sess), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decodeCart(t, resp)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.ItemCount)
}

func TestCartRoutes_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{
			name:   "missing_session_for_guest",
			method: http.MethodGet, path: "/cart?store_id=1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "missing_store_id",
			method: http.MethodGet, path: "/cart?session_id=s",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "zero_quantity",
			method: http.MethodPost, path: "/cart/items",
			body:       map[string]any{"store_id": 1, "product_id": 7, "quantity": 0, "session_id": "s"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "unknown_product",
			method: http.MethodPost, path: "/cart/items",
			body:       map[string]any{"store_id": 1, "product_id": 999, "quantity": 1, "session_id": "s"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "malformed_item_id",
			method: http.MethodDelete, path: "/cart/items/not-a-uuid?session_id=s",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body, "")
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCartRoutes_InvalidBearerRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/cart?store_id=1&session_id=s", nil, "bogus-token")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// An authenticated read carrying a session id triggers the guest-to-user
// merge: this is the server half of the login migration.
func TestCartRoutes_MergeOnAuthenticatedRead(t *testing.T) {
	f := newFixture(t)
	const sess = "guest-to-merge"

	resp := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"store_id": 1, "product_id": 7, "quantity": 3, "session_id": sess,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token, err := f.jwt.Generate("user-77")
	require.NoError(t, err)

	resp = f.do(t, http.MethodGet, "/cart?store_id=1&session_id="+sess, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	merged := decodeCart(t, resp)
	assert.Equal(t, "user-77", merged.OwnerID)
	assert.Equal(t, 3, merged.ItemCount)

	// The guest identity no longer reaches a cart.
	resp = f.do(t, http.MethodGet, "/cart?store_id=1&session_id="+sess, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	emptied := decodeCart(t, resp)
	assert.Empty(t, emptied.Items)
}

func TestCheckout_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/orders/checkout", map[string]any{
		"store_id": 1, "customer_email": "a@b.com",
		"shipping_address": "1 Main St", "billing_address": "1 Main St",
	}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckout_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.jwt.Generate("user-1")
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"store_id": 1, "product_id": 7, "quantity": 3,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/orders/checkout", map[string]any{
		"store_id": 1, "customer_email": "shopper@example.com",
		"shipping_address": "1 Main St", "billing_address": "1 Main St",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var placed struct {
		OrderID     string `json:"order_id"`
		OrderNumber string `json:"order_number"`
		Status      string `json:"status"`
		Total       string `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&placed))
	resp.Body.Close()
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-Z]{6}$`, placed.OrderNumber)
	assert.Equal(t, store.StatusPending, placed.Status)
	assert.Equal(t, "30", placed.Total)

	// Checkout must not clear the cart; that is the caller's explicit
	// second step.
	c, err := f.store.GetCart(ctx, 1, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.ItemCount, "checkout must leave the cart intact")

	resp = f.do(t, http.MethodDelete, "/cart/clear?store_id=1", nil, token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Lookup: wrong email and missing order collapse into the same 404.
	resp = f.do(t, http.MethodGet, "/orders/"+placed.OrderNumber+"?email=wrong@example.com", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/orders/ORD-19700101-ZZZZZZ?email=shopper@example.com", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/orders/"+placed.OrderNumber+"?email=shopper@example.com", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details store.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	resp.Body.Close()
	assert.Equal(t, placed.OrderNumber, details.OrderNumber)
	require.Len(t, details.Items, 1)
	assert.Equal(t, 3, details.Items[0].Quantity)
	assert.True(t, details.Items[0].Price.Equal(decimal.RequireFromString("10.00")))

	// Even with the correct cart state, checkout on an emptied cart is
	// rejected.
	resp = f.do(t, http.MethodPost, "/orders/checkout", map[string]any{
		"store_id": 1, "customer_email": "shopper@example.com",
		"shipping_address": "1 Main St", "billing_address": "1 Main St",
	}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
