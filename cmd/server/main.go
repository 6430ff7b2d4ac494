// Package main is the entry point for the grooming booking server.
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

	"github.com/joho/godotenv"

	"github.com/groom-booking/backend/internal/api"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/config"
	"github.com/groom-booking/backend/internal/notify"
	"github.com/groom-booking/backend/internal/obs"
	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/memory"
	"github.com/groom-booking/backend/internal/storage/relational"
	"github.com/groom-booking/backend/internal/storage/sheets"
	"github.com/groom-booking/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.HTTPAddr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting grooming booking server (version: %s)...", version)

	ctx := context.Background()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.OTLPEndpoint, "groom-booking", version, cfg.Environment)
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	catalog, err := slot.NewCatalog(cfg.SlotTimes, cfg.Groomers, cfg.Service, loc)
	if err != nil {
		log.Fatalf("Invalid slot catalog: %v", err)
	}
	log.Printf("Slot catalog: %d times x %d groomers (%s, %s)", len(catalog.Times()), len(catalog.Groomers()), catalog.Service(), loc)

	backend, closeStore, err := openStore(ctx, cfg, loc)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	var store storage.BookingStore = backend
	var cache *storage.CachedStore
	// Only the spreadsheet backend is slow enough to be worth a stale window.
	if cfg.CacheTTL > 0 && cfg.StoreDriver == config.DriverSheets {
		cache = storage.NewCachedStore(backend, cfg.CacheSize, cfg.CacheTTL)
		store = cache
	} else if cfg.CacheTTL > 0 {
		log.Printf("STORE_CACHE_TTL ignored for the %s store", cfg.StoreDriver)
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	events := websocket.NewEventBroadcaster(hub)

	notifiers := notify.Fanout{events}
	if cfg.RabbitMQURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, booking events will only be logged: %v", err)
			notifiers = append(notifiers, notify.LogNotifier{})
		} else {
			defer pub.Close()
			notifiers = append(notifiers, pub)
		}
	} else {
		notifiers = append(notifiers, notify.LogNotifier{})
	}

	// Other replicas write bookings too; drop their dates from our cache.
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	if cache != nil && cfg.RabbitMQURL != "" {
		go notify.NewCacheSync(cfg.RabbitMQURL, cfg.RabbitMQExchange, cache, 5*time.Second).Run(listenCtx)
	}

	ledger := reservation.NewLedger(reservation.RealClock{}, loc)
	resolver := booking.NewResolver(store, ledger, catalog)
	resolver.OnDegraded(events.AvailabilityDegraded)

	holds := booking.NewHoldService(resolver, ledger, catalog, booking.TTLs{
		Browse:  cfg.BrowseHoldTTL,
		Reserve: cfg.ReserveHoldTTL,
	}, events)
	writer := booking.NewWriter(store, resolver, ledger, catalog, notifiers, events)
	writer.StrictTransitions = cfg.StrictStatusTransitions

	sweeper := reservation.NewSweeper(ledger, cfg.SweepInterval, events.SlotReleased)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start hold sweeper: %v", err)
	}

	if cfg.AdminJWTSecret == "" {
		log.Println("Warning: ADMIN_JWT_SECRET not set, admin endpoints are disabled")
	}

	router := api.NewRouter(api.Services{
		Store:       store,
		StoreDriver: cfg.StoreDriver,
		Catalog:     catalog,
		Resolver:    resolver,
		Holds:       holds,
		Writer:      writer,
		Hub:         hub,
		AdminSecret: cfg.AdminJWTSecret,
		SlotLength:  cfg.SlotLength,
		StaticDir:   cfg.StaticDir,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	hub.Stop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// openStore opens the configured booking backend. The returned function
// releases it.
func openStore(ctx context.Context, cfg config.Config, loc *time.Location) (storage.BookingStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := storage.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		applied, err := db.Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Printf("Using SQLite store at %s (%d new migrations)", db.Path(), applied)
		return storage.NewBookingRepository(db), func() { db.Close() }, nil

	case config.DriverPostgres:
		s, err := relational.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Using Postgres store")
		return s, func() { s.Close() }, nil

	case config.DriverSheets:
		s, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.SheetsID,
			Tab:             cfg.SheetsTab,
			CredentialsFile: cfg.SheetsCredsFile,
			Location:        loc,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureHeader(ctx); err != nil {
			return nil, nil, err
		}
		log.Printf("Using Google Sheets store (tab %q)", cfg.SheetsTab)
		return s, func() {}, nil

	case config.DriverMemory:
		log.Println("Warning: using in-memory store, bookings are lost on restart")
		return memory.New(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
