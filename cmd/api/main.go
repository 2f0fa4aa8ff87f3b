package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-relay/internal/auth"
	"call-relay/internal/config"
	"call-relay/internal/history"
	"call-relay/internal/httpapi"
	"call-relay/internal/push"
	"call-relay/internal/registry"
	"call-relay/internal/relay"
	"call-relay/internal/session"
	"call-relay/pkg/logger"
	"call-relay/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// The history database is optional; without it the relay still serves
	// calls, it just keeps no audit trail.
	var db *sql.DB
	var histService *history.Service
	if cfg.HistoryEnabled() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		histService = history.NewService(history.NewPostgresRepo(db))
	}

	dispatcher, err := push.NewFCMDispatcher(cfg.Push.Endpoint, cfg.Push.ServerKey, cfg.Push.SendTimeout)
	if err != nil {
		log.Error("push dispatcher init failed", "err", err)
		os.Exit(1)
	}

	sessionStore := session.NewRedisStore(rdb, cfg.Redis.SessionTTL)
	deviceRegistry := registry.NewRedisRegistry(rdb)
	relayService := relay.NewService(sessionStore, deviceRegistry, dispatcher, histService, log)

	handlers := httpapi.Handlers{
		Relay:    relayService,
		Devices:  deviceRegistry,
		Sessions: sessionStore,
		History:  histService,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		handlers: handlers,
		authMW:   auth.RequireAccessToken(authManager),
		auth:     authManager,
		devAuth:  !cfg.IsProduction(),
		ready: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			if db != nil {
				return utils.HealthCheck(ctx, db, 2*time.Second)
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "history", cfg.HistoryEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
