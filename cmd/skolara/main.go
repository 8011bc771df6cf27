package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skolara/skolara/internal/app"
	"github.com/skolara/skolara/internal/audit"
	audithttp "github.com/skolara/skolara/internal/audit/http"
	"github.com/skolara/skolara/internal/auth"
	"github.com/skolara/skolara/internal/guard"
	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/observability"
	"github.com/skolara/skolara/internal/platform/cache"
	"github.com/skolara/skolara/internal/platform/db"
	"github.com/skolara/skolara/internal/token"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	identities := identity.NewRepository(dbpool)
	revocations := token.NewRedisRevocationSet(redisClient)

	authority, err := token.NewAuthority(token.Config{
		Issuer:            cfg.JWTIssuer,
		Secret:            []byte(cfg.JWTSecret),
		Algorithm:         cfg.JWTAlgorithm,
		AccessTTL:         cfg.AccessTTL(),
		RefreshTTL:        cfg.RefreshTTL(),
		Leeway:            cfg.JWTLeeway,
		RevocationEnabled: cfg.RevocationEnabled,
		RevocationGrace:   cfg.RevocationGrace,
	}, identities, revocations)
	if err != nil {
		logger.Error("init token authority", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := audit.NewLedger(dbpool)
	recorder := audit.NewRecorder(ledger, logger)
	metrics := observability.NewMetrics()

	guardMiddleware := guard.Middleware{
		Verifier: authority,
		Recorder: recorder,
		Metrics:  metrics,
		Logger:   logger,
	}

	authHandler := auth.NewHandler(logger, authority, identities, recorder, metrics)
	auditHandler := audithttp.NewHandler(logger, ledger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		AuditHandler: auditHandler,
		Guard:        guardMiddleware,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
