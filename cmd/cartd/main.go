package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/store"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "cartd").Logger()

	log.Info().Msg("cartd starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var st store.Store
	if cfg.Postgres.Host != "" {
		dbConn, err := db.New(context.Background(), cfg.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbConn.Close()
		st = store.NewPostgresStore(dbConn.Pool)
	} else {
		log.Info().Msg("No DB_HOST configured, using in-memory store")
		memStore := store.NewMemoryStore()
		seedCatalog(memStore, cfg.App.StoreID)
		st = memStore
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      transport.NewRouter(st, jwtManager),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// seedCatalog gives the in-memory store a few products so a fresh dev
// instance is usable without any setup.
func seedCatalog(st *store.MemoryStore, storeID int64) {
	products := []store.Product{
		{ID: 1, StoreID: storeID, Name: "Classic T-Shirt", Price: decimal.RequireFromString("19.90")},
		{ID: 2, StoreID: storeID, Name: "Hoodie", Price: decimal.RequireFromString("49.00")},
		{ID: 3, StoreID: storeID, Name: "Baseball Cap", Price: decimal.RequireFromString("14.50")},
		{ID: 7, StoreID: storeID, Name: "Canvas Tote Bag", Price: decimal.RequireFromString("10.00")},
	}
	for _, p := range products {
		if err := st.UpsertProduct(context.Background(), p); err != nil {
			log.Warn().Err(err).Int64("product_id", p.ID).Msg("Failed to seed product")
		}
	}
}
