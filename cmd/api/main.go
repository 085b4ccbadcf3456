package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/servineo/servineo-api/internal/cache"
	"github.com/servineo/servineo-api/internal/config"
	"github.com/servineo/servineo-api/internal/domain/auth"
	"github.com/servineo/servineo-api/internal/domain/health"
	"github.com/servineo/servineo-api/internal/domain/transaction"
	"github.com/servineo/servineo-api/internal/middleware"
	"github.com/servineo/servineo-api/internal/pkg/database"
	"github.com/servineo/servineo-api/internal/pkg/jwt"
	"github.com/servineo/servineo-api/internal/pkg/logger"
	"github.com/servineo/servineo-api/internal/ratelimit"
	"github.com/servineo/servineo-api/internal/security"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Servineo API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Security pipeline ----------
	var denylist security.DenylistStore = security.StaticDenylist{}
	var counterStore ratelimit.CounterStore = ratelimit.NewMemoryStore()
	if redisClient != nil {
		denylist = security.NewRedisDenylist(redisClient, cfg.DenylistKey)
		counterStore = ratelimit.NewRedisStore(redisClient, "ratelimit:")
	}

	policy := security.NewPolicy(cfg.AllowedOrigins, denylist)
	limiter := ratelimit.NewLimiter(counterStore, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassAuth:      {Window: cfg.RateLimitAuth.Window, Max: cfg.RateLimitAuth.Max},
		ratelimit.ClassSensitive: {Window: cfg.RateLimitSensitive.Window, Max: cfg.RateLimitSensitive.Max},
		ratelimit.ClassAPI:       {Window: cfg.RateLimitAPI.Window, Max: cfg.RateLimitAPI.Max},
	})
	gateway := middleware.NewGateway(policy, limiter, jwtService, middleware.DefaultRouteTable())

	if memStore, ok := counterStore.(*ratelimit.MemoryStore); ok {
		sweepCtx, sweepCancel := context.WithCancel(context.Background())
		defer sweepCancel()
		memStore.StartSweeper(sweepCtx, 5*time.Minute)
	}

	// ---------- Domain wiring ----------
	listCache := cache.NewListCache(redisClient, 5*time.Minute)

	transactionRepo := transaction.NewRepository(db)
	transactionService := transaction.NewService(transactionRepo, listCache)
	transactionHandler := transaction.NewHandler(transactionService)

	authHandler := auth.NewHandler()
	healthHandler := health.NewHandler(db, redisClient)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.SecurityHeaders)
	r.Use(gateway.Denylist)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(gateway.Handler)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/transactions", transactionHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
