package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

func newDeps(token string) (cart.Deps, *notify.Notifier) {
	notifier := notify.NewNotifier()
	return cart.Deps{
		Sessions: session.NewProvider(session.NewMemoryStore()),
		Tokens:   auth.StaticTokenSource(token),
		Notifier: notifier,
	}, notifier
}

func TestNew_RequiresStoreID(t *testing.T) {
	deps, _ := newDeps("")
	_, err := cart.New(cart.Config{}, deps)
	assert.ErrorIs(t, err, cart.ErrNoStore)
}

func TestNew_EmptyBackendSelectsMockMode(t *testing.T) {
	deps, notifier := newDeps("")
	client, err := cart.New(cart.Config{StoreID: 1}, deps)
	require.NoError(t, err)

	signals, cancel := notifier.Subscribe()
	defer cancel()

	c, err := client.AddItem(context.Background(), cart.AddItemRequest{
		ProductID: 7, Quantity: 2, Price: price("10.00"), Name: "Tote",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.ItemCount)
	assert.Len(t, signals, 1, "successful mutation must pulse the notifier")
}

func TestRemoteClient_AttachesSessionHint(t *testing.T) {
	var gotSession, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.URL.Query().Get("session_id")
		gotAuth = r.Header.Get("Authorization")
		respondCart(w, http.StatusOK)
	}))
	defer server.Close()

	// Even an authenticated read carries the session id, so the server
	// can detect a pending migration.
	deps, _ := newDeps("user-token")
	client, err := cart.NewRemoteClient(cart.Config{StoreID: 1, BackendURL: server.URL}, deps)
	require.NoError(t, err)

	_, err = client.GetCart(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, gotSession)
	assert.Equal(t, "Bearer user-token", gotAuth)
}

func TestRemoteClient_GetCartSwallowsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		close   bool
	}{
		{
			name:    "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		},
		{
			name:    "garbage_body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not json")) },
		},
		{
			name:    "connection_refused",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			close:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			if tt.close {
				server.Close()
			} else {
				defer server.Close()
			}

			deps, _ := newDeps("")
			client, err := cart.NewRemoteClient(cart.Config{StoreID: 3, BackendURL: server.URL}, deps)
			require.NoError(t, err)

			c, err := client.GetCart(context.Background())
			require.NoError(t, err, "read failures must never surface")
			assert.Equal(t, int64(3), c.StoreID)
			assert.Empty(t, c.Items)
			assert.Equal(t, 0, c.ItemCount)
		})
	}
}

func TestRemoteClient_ItemCountDegradesToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	deps, _ := newDeps("")
	client, err := cart.NewRemoteClient(cart.Config{StoreID: 1, BackendURL: server.URL}, deps)
	require.NoError(t, err)

	count, err := client.ItemCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemoteClient_MutationFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusConflict)
	}))
	defer server.Close()

	deps, notifier := newDeps("")
	client, err := cart.NewRemoteClient(cart.Config{StoreID: 1, BackendURL: server.URL}, deps)
	require.NoError(t, err)

	signals, cancel := notifier.Subscribe()
	defer cancel()

	_, err = client.AddItem(context.Background(), cart.AddItemRequest{ProductID: 7, Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	_, err = client.UpdateItem(context.Background(), uuid.Must(uuid.NewV4()), 2)
	require.Error(t, err)

	assert.Empty(t, signals, "failed mutations must not pulse the notifier")
}

func TestRemoteClient_SuccessfulMutationPulses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			respondCart(w, http.StatusCreated)
		default:
			respondCart(w, http.StatusOK)
		}
	}))
	defer server.Close()

	deps, notifier := newDeps("")
	client, err := cart.NewRemoteClient(cart.Config{StoreID: 1, BackendURL: server.URL}, deps)
	require.NoError(t, err)

	signals, cancel := notifier.Subscribe()
	defer cancel()

	ctx := context.Background()
	_, err = client.AddItem(ctx, cart.AddItemRequest{ProductID: 7, Quantity: 1})
	require.NoError(t, err)
	<-signals

	_, err = client.RemoveItem(ctx, uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	<-signals
}

func respondCart(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(cart.Empty(1, "someone"))
}
