// @title                       Commerce API
// @version                     1.0
// @description                 Registration, login and bearer-token authorization for the commerce backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopline/commerce-api/internal/api"
	"github.com/shopline/commerce-api/internal/api/handler"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/core/service"
	mongostore "github.com/shopline/commerce-api/internal/infrastructure/db/mongo"
	"github.com/shopline/commerce-api/internal/infrastructure/db/postgres"
	rediscache "github.com/shopline/commerce-api/internal/infrastructure/db/redis"
	"github.com/shopline/commerce-api/internal/infrastructure/db/sqlite"
	"github.com/shopline/commerce-api/internal/infrastructure/password"
	"github.com/shopline/commerce-api/internal/infrastructure/telemetry"
	"github.com/shopline/commerce-api/internal/infrastructure/token"
	"github.com/shopline/commerce-api/internal/pkg/config"
	"github.com/shopline/commerce-api/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not loaded:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("commerce-api: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	lg := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: cfg.Telemetry.ServiceName,
		Env:     cfg.Env,
	})

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			lg.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	// --- Identity store ---
	store, storePing, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	lg.Info().Str("driver", cfg.Store.Driver).Msg("identity store ready")

	checks := map[string]handler.Pinger{"store": storePing}

	// --- Role cache ---
	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		cache := rediscache.NewRoleCache(store, rdb, cfg.Redis.RoleCacheTTL, logger.Component("role_cache"))
		store = cache
		checks["redis"] = cache
		lg.Info().Dur("ttl", cfg.Redis.RoleCacheTTL).Msg("role cache enabled")
	}

	// --- Role bootstrap ---
	if cfg.Auth.SeedRoles {
		roles := append([]string{cfg.Auth.DefaultRole}, cfg.Auth.Roles...)
		if err := service.EnsureRoles(ctx, store, lg, roles...); err != nil {
			return err
		}
	}

	// --- Credentials and tokens ---
	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := token.NewManager(token.Config{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.JWTTTL,
		Issuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}

	authService := service.NewAuthService(store, hasher, tokens, service.AuthConfig{
		DefaultRole: cfg.Auth.DefaultRole,
		TokenTTL:    cfg.Auth.JWTTTL,
	}, logger.Component("auth"))

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      tokens,
		PasswordPolicy: handler.PasswordPolicy{
			MinLength:    cfg.Auth.PasswordMin,
			RequireMixed: cfg.Auth.PasswordMixed,
		},
		Checks:         checks,
		Logger:         lg,
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	lg.Info().Msg("server stopped")
	return nil
}

// openStore opens the configured identity store and returns it with its
// readiness check and a close function.
func openStore(ctx context.Context, cfg *config.Config) (ports.IdentityStore, handler.Pinger, func(), error) {
	lg := logger.Component("store")
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return store, store, func() { _ = store.Close() }, nil

	case config.DriverPostgres:
		pool, store, err := postgres.Open(ctx, cfg.Store.PostgresURL, lg)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, pool.Close, nil

	default:
		client, store, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.Store.MongoURI, Database: cfg.Store.MongoDB})
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				lg.Warn().Err(err).Msg("mongo disconnect")
			}
		}
		return store, store, closeFn, nil
	}
}
