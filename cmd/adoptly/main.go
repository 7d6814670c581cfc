package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"adoptly.org/adoptly/internal/adoptly/accounts"
	"adoptly.org/adoptly/internal/adoptly/config"
	"adoptly.org/adoptly/internal/adoptly/httpserver"
	"adoptly.org/adoptly/internal/adoptly/login"
	"adoptly.org/adoptly/internal/adoptly/observability"
	"adoptly.org/adoptly/internal/adoptly/session"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, closer, err := buildDirectory(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init account directory", zap.Error(err))
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("close account directory", zap.Error(err))
		}
	}()

	svc := accounts.NewService(dir)
	if cfg.Accounts.SeedDemo {
		if err := svc.SeedDemo(ctx); err != nil {
			logger.Fatal("seed demo account", zap.Error(err))
		}
		logger.Info("demo account ready", zap.String("username", accounts.DemoUsername))
	}

	hashKey, blockKey := cfg.SessionKeys()
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		logger.Fatal("init session manager", zap.Error(err))
	}

	prefill := ""
	if cfg.Accounts.PrefillDemo && cfg.IsDevelopment() {
		prefill = accounts.DemoUsername
	}

	srv := httpserver.New(httpserver.Config{
		Address:         cfg.Server.Address,
		Environment:     cfg.Server.Environment,
		Logger:          logger,
		Authenticator:   login.Deduplicate(svc),
		Registrar:       svc,
		Sessions:        sessions,
		PrefillUsername: prefill,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("adoptly server listening",
		zap.String("address", cfg.Server.Address),
		zap.String("environment", cfg.Server.Environment),
		zap.Bool("firestore", cfg.UseFirestore()),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildDirectory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (accounts.Directory, io.Closer, error) {
	if !cfg.UseFirestore() {
		logger.Info("FIREBASE_PROJECT_ID not set; keeping accounts in memory")
		return accounts.NewMemoryDirectory(), nopCloser{}, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: cfg.Accounts.FirebaseProjectID,
	})
	if err != nil {
		return nil, nil, err
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, err
	}

	dir, err := accounts.NewFirestoreDirectory(client, cfg.Accounts.Collection)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("Firestore account directory enabled",
		zap.String("project", cfg.Accounts.FirebaseProjectID),
		zap.String("collection", cfg.Accounts.Collection),
	)
	return dir, client, nil
}
