// Package main runs the coin creation service: market gallery, identity
// lookups, the generate/upload/mint pipeline and its websocket event feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibemint/internal/config"
	"vibemint/internal/creation"
	"vibemint/internal/identity"
	"vibemint/internal/imagegen"
	"vibemint/internal/market"
	"vibemint/internal/minting"
	"vibemint/internal/server"
	"vibemint/internal/storage"
	chstore "vibemint/internal/storage/clickhouse"
	"vibemint/internal/storage/memory"
	"vibemint/internal/storage/migrations"
	pgstore "vibemint/internal/storage/postgres"
	"vibemint/internal/upload"
	"vibemint/internal/wallet"
)

func main() {
	cfg := config.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the creations ledger")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the market snapshot archive")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creations, snapshots, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Market gallery with best-effort snapshot archiving.
	archiver := market.NewSnapshotArchiver(snapshots, log.New(os.Stdout, "[market] ", log.LstdFlags))
	gateway := market.NewGateway(cfg.Backend.ExploreAPIURL, log.New(os.Stdout, "[market] ", log.LstdFlags),
		market.WithArchiver(archiver))

	resolver := identity.NewResolver(cfg.Backend.ProfileAPIURL, cfg.Backend.BaseURL,
		log.New(os.Stdout, "[identity] ", log.LstdFlags))

	// Image generation: the configured primary provider, the other as fallback
	// when its key is present.
	primary, fallback := buildProviders(cfg)
	fetcher := imagegen.NewFetcher(cfg.Backend.ImageProxyBase, log.New(os.Stdout, "[imagegen] ", log.LstdFlags))
	pipeline := imagegen.NewPipeline(fetcher, primary, fallback, market.PlaceholderImageURL,
		log.New(os.Stdout, "[imagegen] ", log.LstdFlags))

	uploader := upload.NewClient(cfg.Backend.BaseURL, log.New(os.Stdout, "[upload] ", log.LstdFlags))

	// Wallet provider connection. Startup does not require it; minting does,
	// and refuses until the session is connected.
	walletLogger := log.New(os.Stdout, "[wallet] ", log.LstdFlags)
	session := wallet.NewRPCSession(wallet.NewHTTPClient(cfg.Chain.RPCEndpoint), walletLogger)
	if err := connectWallet(ctx, session); err != nil {
		logger.Printf("Wallet not connected yet: %v (minting disabled until the provider is reachable)", err)
	}

	minter := minting.NewMinter(session, cfg.Chain.CoinFactoryAddress,
		log.New(os.Stdout, "[minting] ", log.LstdFlags))

	machineLogger := log.New(os.Stdout, "[creation] ", log.LstdFlags)
	factory := func(id string) *creation.Machine {
		return creation.NewMachine(id, pipeline, uploader, minter, session, creations,
			cfg.Chain.PlatformReferrer, machineLogger)
	}

	api := server.New(server.Deps{
		Market:     gateway,
		Identity:   resolver,
		Creations:  creations,
		NewMachine: factory,
	}, logger)

	httpServer := &http.Server{Addr: *addr, Handler: api.Handler()}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		go func() {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Printf("Shutdown error: %v", err)
			}
			cancel()
		}()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	close(done)
	logger.Println("Shutdown complete")
}

// createStores creates the creations ledger and the snapshot archive.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.CreationStore, storage.SnapshotStore, func(), error) {
	if useMemory {
		return memory.NewCreationStore(), memory.NewSnapshotStore(), func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewCreationStore(pool), chstore.NewSnapshotStore(chConn), cleanup, nil
}

// buildProviders picks the primary generation provider and, when the other
// provider has an API key, the fallback.
func buildProviders(cfg *config.Config) (imagegen.Provider, imagegen.Provider) {
	gemini := imagegen.NewGeminiProvider(cfg.Generation.GeminiAPIKey, cfg.Generation.GeminiModel)
	openai := imagegen.NewOpenAIProvider(cfg.Generation.OpenAIAPIKey, cfg.Generation.OpenAIModel)

	if cfg.Generation.Primary == "openai" {
		if cfg.Generation.GeminiAPIKey == "" {
			return openai, nil
		}
		return openai, gemini
	}
	if cfg.Generation.OpenAIAPIKey == "" {
		return gemini, nil
	}
	return gemini, openai
}

// connectWallet tries the provider once with a short timeout.
func connectWallet(ctx context.Context, session wallet.Session) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return session.Connect(connectCtx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
