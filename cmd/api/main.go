package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"loyalty-points-api/internal/cache"
	"loyalty-points-api/internal/config"
	"loyalty-points-api/internal/database"
	"loyalty-points-api/internal/events"
	"loyalty-points-api/internal/features"
	"loyalty-points-api/internal/handler"
	"loyalty-points-api/internal/middleware"
	"loyalty-points-api/internal/service"
	"loyalty-points-api/internal/tlsconfig"
	"loyalty-points-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (env vars take precedence)")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "loyalty-points-api",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}()

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Features.CacheEnabled, "customer profile cache")
	flags.Register(features.FeatureEventHooksEnabled, cfg.Features.EventHooksEnabled, "event-driven hooks")

	// Cache: Redis when configured, in-process otherwise
	var profileCache cache.Cache
	if flags.IsEnabled(features.FeatureCacheEnabled) {
		if cfg.Redis.Enabled {
			redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer redisCache.Close()
			profileCache = redisCache
		} else {
			profileCache = cache.NewInMemoryCache()
		}
	}

	// Events
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventPointsRedeemed, logEvent)
	eventManager.Subscribe(events.EventRewardRedeemed, logEvent)
	eventManager.Subscribe(events.EventCustomerCreated, logEvent)

	// Initialize service
	svc := service.NewServiceWithOptions(db, service.Options{
		Cache:  profileCache,
		Events: eventManager,
	})

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Post("/add-points", h.AddPoints)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/{customer_id}", h.GetCustomer)
		r.Get("/{customer_id}/qr", h.IssueQR)
		r.Get("/{customer_id}/transactions", h.ListTransactions)
	})

	r.Route("/rewards", func(r chi.Router) {
		r.Post("/", h.UpsertReward)
		r.Get("/", h.ListRewards)
		r.Post("/redeem", h.RedeemReward)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Configure TLS if enabled
	var tlsCfg *tls.Config
	if cfg.Server.EnableTLS {
		tlsCfg, err = tlsconfig.LoadTLSConfig(tlsconfig.Config{
			CertFile: cfg.Server.CertFile,
			KeyFile:  cfg.Server.KeyFile,
		})
		if err != nil {
			log.Fatalf("Failed to load TLS configuration: %v", err)
		}
		if cfg.Server.CertFile == "" || cfg.Server.KeyFile == "" {
			log.Println("WARNING: No certificate files provided, using self-signed certificate for development")
		}
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	protocol := "HTTP"
	if cfg.Server.EnableTLS {
		protocol = "HTTPS"
	}
	log.Printf("Starting %s server on %s", protocol, addr)
	log.Printf("Database: %s", cfg.Database.Path)

	server := &http.Server{
		Addr:      addr,
		Handler:   r,
		TLSConfig: tlsCfg,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if cfg.Server.EnableTLS {
		listener, listenErr := tls.Listen("tcp", addr, tlsCfg)
		if listenErr != nil {
			log.Fatalf("Failed to create TLS listener: %v", listenErr)
		}
		err = server.Serve(listener)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// logEvent is the default event subscriber; operational visibility only.
func logEvent(_ context.Context, event events.Event) error {
	log.Printf("event %s: %+v", event.Type, event.Data)
	return nil
}
