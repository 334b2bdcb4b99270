// The storefront command walks the whole cart lifecycle against a running
// cartd (or the built-in mock when BACKEND_URL is unset): guest browsing,
// the login migration pulse sequence, checkout, and the explicit cart clear
// afterwards. It stands in for the UI surfaces that would embed the client.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/migration"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/notify"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	storage := session.NewStore(session.StoreConfig{
		Redis: session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		FileDir: cfg.Session.FileDir,
	})
	sessions := session.NewProvider(storage)
	tokens := auth.NewStoreTokenSource(storage)
	notifier := notify.NewNotifier()

	client, err := cart.New(cart.Config{
		StoreID:     cfg.App.StoreID,
		BackendURL:  cfg.Client.BackendURL,
		MockLatency: cfg.Client.MockLatency,
	}, cart.Deps{Sessions: sessions, Tokens: tokens, Notifier: notifier})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build cart client")
	}

	ctx := context.Background()

	// A badge-style subscriber: every pulse triggers a re-pull of the
	// count, the way header widgets react in the UI.
	signals, cancel := notifier.Subscribe()
	defer cancel()
	go func() {
		for range signals {
			count, err := client.ItemCount(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("badge: count refresh failed")
				continue
			}
			log.Info().Int("count", count).Msg("badge: cart changed, count refreshed")
		}
	}()

	// Guest adds the same product twice; the second add merges into the
	// existing line.
	mustAdd(ctx, client, cart.AddItemRequest{
		ProductID: 7, Quantity: 2,
		Name: "Canvas Tote Bag", Price: decimal.RequireFromString("10.00"),
	})
	mustAdd(ctx, client, cart.AddItemRequest{
		ProductID: 7, Quantity: 1,
		Name: "Canvas Tote Bag", Price: decimal.RequireFromString("10.00"),
	})

	guestCart, err := client.GetCart(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch guest cart")
	}
	log.Info().
		Int("item_count", guestCart.ItemCount).
		Str("subtotal", guestCart.Subtotal.String()).
		Msg("Guest cart before login")

	// "Login": in a full deployment the identity service issues this
	// token; the demo mints one with the shared dev secret.
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	token, err := jwtManager.Generate("demo-user-1")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mint demo token")
	}
	if err := tokens.SetToken(ctx, token); err != nil {
		log.Fatal().Err(err).Msg("Failed to persist token")
	}

	coordinator := migration.NewCoordinator(sessions, notifier)
	coordinator.TriggerCartUpdate()
	log.Info().Msg("Login migration triggered; waiting out the merge window")
	time.Sleep(migration.DefaultClearDelay + 200*time.Millisecond)

	userCart, err := client.GetCart(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch user cart")
	}
	log.Info().
		Int("item_count", userCart.ItemCount).
		Str("subtotal", userCart.Subtotal.String()).
		Msg("User cart after migration")

	if cfg.Client.BackendURL == "" {
		log.Info().Msg("Mock mode has no checkout backend; stopping here")
		return
	}

	orchestrator := checkout.NewOrchestrator(cfg.Client.BackendURL, tokens, checkout.NavigatorFunc(func(returnURL string) {
		log.Warn().Str("return_url", returnURL).Msg("Redirecting to login")
	}))

	order, err := orchestrator.Checkout(ctx, checkout.Request{
		StoreID:         cfg.App.StoreID,
		CustomerEmail:   "demo@example.com",
		ShippingAddress: "1 Demo Street",
		BillingAddress:  "1 Demo Street",
		ReturnURL:       "/checkout",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Checkout failed")
	}
	log.Info().
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.String()).
		Msg("Order placed")

	// Checkout success does not clear the cart; that is an explicit,
	// separate step.
	if err := client.ClearCart(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to clear cart after checkout")
	}

	details, err := orchestrator.OrderByNumber(ctx, order.OrderNumber, "demo@example.com")
	if err != nil {
		log.Fatal().Err(err).Msg("Order lookup failed")
	}
	log.Info().
		Str("order_number", details.OrderNumber).
		Str("status", details.Status).
		Msg("Order lookup succeeded")
}

func mustAdd(ctx context.Context, client cart.Client, req cart.AddItemRequest) {
	if _, err := client.AddItem(ctx, req); err != nil {
		log.Fatal().Err(err).Int64("product_id", req.ProductID).Msg("Failed to add item")
	}
}
