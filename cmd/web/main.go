package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/auth"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/config"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/db"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/dietapi"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/web"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/workbench"
)

const (
	tokenTTL      = 24 * time.Hour
	sweepInterval = time.Minute
)

func main() {

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Init(cfg.IsProduction())
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── SENTRY ─────────────────────────
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
		}); err != nil {
			logger.Fatal("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// ───────────────────────── AUTH ─────────────────────────
	var (
		tokens      *auth.Tokens
		authHandler *auth.Handler
	)
	if cfg.AuthEnabled {
		var userRepo auth.UserRepository = auth.NewInMemoryUserRepository()

		if cfg.DatabaseURL != "" {
			pgDB, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				logger.Fatal("database unavailable", zap.Error(err))
			}
			defer pgDB.Close()
			userRepo = auth.NewPostgresUserRepository(pgDB)
		} else {
			logger.Warn("DATABASE_URL not set, dietitian accounts are kept in memory")
		}

		tokens = auth.NewTokens(cfg.JWTSecret, tokenTTL)
		authHandler = auth.NewHandler(auth.NewService(userRepo, cfg.AdminEmails...), tokens, cfg.IsProduction())
	}

	// ───────────────────────── WORKBENCH ─────────────────────────
	backend := dietapi.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)
	store := workbench.NewStore(backend, cfg.SessionTTL)
	go store.Run(ctx, sweepInterval)

	// ───────────────────────── GIN ─────────────────────────
	r := web.NewRouter(web.Deps{
		Store:        store,
		Stager:       upload.NewStager(cfg.MaxUploadBytes()),
		Tokens:       tokens,
		Auth:         authHandler,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsProduction(),
		Sentry:       cfg.SentryDSN != "",
		Logger:       logger.L(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ───────────────────────── START ─────────────────────────
	go func() {
		logger.Info("diet planner running",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.BackendURL),
			zap.Bool("auth", cfg.AuthEnabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
