// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/auth"
	"github.com/givdo/givdo/internal/cache"
	"github.com/givdo/givdo/internal/config"
	"github.com/givdo/givdo/internal/database"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/handlers"
	"github.com/givdo/givdo/internal/logging"
	"github.com/givdo/givdo/internal/memstore"
	"github.com/givdo/givdo/internal/organizations"
	"github.com/givdo/givdo/internal/storage"
	"github.com/givdo/givdo/internal/users"
)

type store interface {
	users.Store
	game.Store
	organizations.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store
	if cfg.InMemory() {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		st = memstore.New()
	} else {
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		st = database.New(pool)
	}

	sessions, err := newSessions(cfg.Token)
	if err != nil {
		logger.Fatalf("sessions: %v", err)
	}

	graph := facebook.NewClient(cfg.Facebook.GraphURL, cfg.Facebook.AppID, cfg.Facebook.Secret, cfg.Facebook.Timeout)
	hub := game.NewHub()
	userSvc := users.NewService(st, logger)

	// the worker cannot reach an in-memory store, so caching then runs inline
	var queue organizations.Enqueuer
	if !cfg.InMemory() {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, caching organizations inline")
		} else {
			defer rdb.Close()
			queue = cache.NewQueue(rdb, cfg.Redis.QueueName, logger)
		}
	}
	var mirror organizations.PictureMirror
	if cfg.MirrorPictures() {
		s3, err := storage.NewS3(ctx, cfg.Pictures, logger)
		if err != nil {
			logger.Fatalf("s3: %v", err)
		}
		mirror = s3
	}

	srv := &handlers.Server{
		Users:         userSvc,
		Games:         game.NewService(st, hub, cfg.Game.Rounds, logger),
		Hub:           hub,
		Organizations: organizations.NewCacher(st, graph, queue, mirror, cfg.Facebook.Timeout, logger),
		Login:         auth.NewFacebookLogin(graph, userSvc, sessions, logger),
		Sessions:      sessions,
		Friends:       graph,
		Logger:        logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func newSessions(cfg config.TokenConfig) (*auth.Sessions, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.LoadSessions(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.ExpireAfter.Duration())
	}
	return auth.NewSessions(cfg.ExpireAfter.Duration())
}
