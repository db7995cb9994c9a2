package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"storefront-api/internal/cache"
	"storefront-api/internal/config"
	"storefront-api/internal/handler"
	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/router"
	"storefront-api/internal/service"
	"storefront-api/internal/txn"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Log)
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	}).Infof("Starting %s", cfg.App.Name)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := openRowRepository(cfg.BackingDB, log)
	if err != nil {
		return err
	}
	defer rows.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// Requests fail with 503 until the store is reachable.
		log.WithError(err).Warn("Redis connection failed")
	} else {
		log.WithField("addr", cfg.Redis.Address()).Info("Redis client initialized")
	}
	cancel()

	// Initialize services
	sessions := service.NewSessionService(redisClient, cfg.Session.HistorySize)
	market := service.NewMarketService(redisClient, txn.NewExecutor(redisClient, log), service.MarketConfig{
		ListTimeout:     cfg.Market.ListTimeout,
		PurchaseTimeout: cfg.Market.PurchaseTimeout,
	}, log)
	reaper := service.NewReaper(redisClient, service.ReaperConfig{
		Limit:     cfg.Session.Limit,
		Interval:  cfg.Session.ReaperInterval,
		BatchSize: cfg.Session.ReaperBatch,
	}, log)
	rank := service.NewViewRank(redisClient, service.ViewRankConfig{
		Interval:      cfg.Rank.RescaleInterval,
		MaxTracked:    cfg.Rank.MaxTracked,
		CacheableRank: cfg.Rank.CacheableRank,
		Decay:         cfg.Rank.Decay,
	}, log)
	rowCache := service.NewRowCache(redisClient, rows, cfg.RowCache.PollInterval, log)
	voting := service.NewVotingService(redisClient)

	var store cache.Cache
	switch cfg.RequestCache.Type {
	case "memory":
		mem := cache.NewMemoryCache(time.Minute)
		defer mem.Close()
		store = mem
	default: // redis
		store = cache.NewRedisCache(redisClient)
	}
	pages := cache.NewRequestCache(store, rank, cfg.RequestCache.TTL, log)
	log.WithField("type", cfg.RequestCache.Type).Info("Request cache initialized")

	r := router.New(router.Config{
		Handler:        handler.New(redisClient, cfg.App.Name, cfg.App.Version),
		SessionHandler: handler.NewSessionHandler(sessions, log),
		ItemHandler:    handler.NewItemHandler(sessions, pages, rows, log),
		MarketHandler:  handler.NewMarketHandler(market, log),
		RowHandler:     handler.NewRowHandler(rowCache, log),
		ArticleHandler: handler.NewArticleHandler(voting, log),
		AdminHandler: handler.NewAdminHandler(handler.AdminDeps{
			Rows:     rows,
			DBType:   cfg.BackingDB.Type,
			Sessions: sessions,
			RowCache: rowCache,
			Rank:     rank,
			Market:   market,
		}, log),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			Sessions:        sessions,
			ErrUnknownToken: service.ErrUnknownToken,
		}),
		AdminMiddleware: middleware.NewLoginKeyMiddleware(cfg.App.LoginKey),
		Logger:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", cfg.Server.Address()).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return reaper.Run(gctx) })
	g.Go(func() error { return rank.Run(gctx) })
	g.Go(func() error { return rowCache.Run(gctx) })

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openRowRepository connects to the backing database named by cfg.Type.
func openRowRepository(cfg config.BackingDBConfig, log *logrus.Logger) (repository.RowRepository, error) {
	entry := logger.Component(log, "repository").WithField("type", cfg.Type)

	var (
		repo repository.RowRepository
		err  error
	)
	switch cfg.Type {
	case "mongodb", "mongo":
		repo, err = repository.NewMongoDBRowRepository(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case "postgres", "postgresql":
		repo, err = repository.NewPostgresRowRepository(cfg.PostgresDSN())
	case "mysql":
		repo, err = repository.NewMySQLRowRepository(cfg.MySQLDSN())
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
		repo, err = repository.NewSQLiteRowRepository(cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	entry.Info("Backing row repository initialized")
	return repo, nil
}
