// cmd/worker/main.go runs organization caching jobs popped from the Redis queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/cache"
	"github.com/givdo/givdo/internal/config"
	"github.com/givdo/givdo/internal/database"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/logging"
	"github.com/givdo/givdo/internal/organizations"
	"github.com/givdo/givdo/internal/storage"
	"github.com/givdo/givdo/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	if cfg.InMemory() {
		logger.Fatal("the worker needs DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	var mirror organizations.PictureMirror
	if cfg.MirrorPictures() {
		s3, err := storage.NewS3(ctx, cfg.Pictures, logger)
		if err != nil {
			logger.Fatalf("s3: %v", err)
		}
		mirror = s3
	}

	queue := cache.NewQueue(rdb, cfg.Redis.QueueName, logger)
	graph := facebook.NewClient(cfg.Facebook.GraphURL, cfg.Facebook.AppID, cfg.Facebook.Secret, cfg.Facebook.Timeout)
	cacher := organizations.NewCacher(database.New(pool), graph, queue, mirror, cfg.Facebook.Timeout, logger)

	worker.NewProcessor(queue, cacher, logger).Run(ctx)
	logger.Info("worker stopped")
}
