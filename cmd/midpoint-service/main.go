package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/nitesh/midpoint_service/internal/api"
	"github.com/nitesh/midpoint_service/internal/cache"
	"github.com/nitesh/midpoint_service/internal/config"
	"github.com/nitesh/midpoint_service/internal/logging"
	"github.com/nitesh/midpoint_service/internal/maps"
	"github.com/nitesh/midpoint_service/internal/metrics"
	"github.com/nitesh/midpoint_service/internal/places"
	"github.com/nitesh/midpoint_service/internal/service"
	"github.com/nitesh/midpoint_service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	mapsClient := maps.NewClient(cfg.Maps.BaseURL, cfg.Maps.APIKey, &http.Client{Timeout: cfg.Maps.Timeout})
	mapsClient.SetLogger(logger.Named("maps"))
	if !mapsClient.Configured() {
		logger.Warn("GOOGLE_MAPS_API_KEY is not set; place search falls back to the catalog")
	}

	var remote places.Searcher = mapsClient
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		remote = cache.NewPlaceSearch(mapsClient, rdb, cfg.Redis.PlacesTTL, logger.Named("cache"))
	}

	deps := service.Deps{
		Geocoder: mapsClient,
		Reverse:  cache.NewReverseGeocode(mapsClient, time.Hour),
		Searcher: remote,
		Travel:   mapsClient,
		Lookup:   mapsClient,
	}

	if cfg.Database.CatalogEnabled {
		db, err := openDB(cfg.PostgresURL(), logger)
		if err != nil {
			logger.Fatal("could not connect to db", zap.Error(err))
		}
		defer db.Close()

		// ensure tables exist (run migrations)
		if err := store.RunMigrations(db); err != nil {
			logger.Fatal("migrations", zap.Error(err))
		}
		repo := store.NewPgStore(db)
		repo.SetLimit(cfg.Database.CatalogLimit)
		deps.Searcher = places.Chain{remote, repo}
		deps.Catalog = repo
	}

	svc := service.NewService(deps, service.Options{
		MaxResults:  cfg.Search.MaxResults,
		RadiusMiles: cfg.Search.RadiusMiles,
		TravelMode:  cfg.Search.TravelMode,
	}, logger.Named("service"))

	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logging.GinLogger(logger.Named("http"), "/api/health", "/metrics"), gin.Recovery())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	api.RegisterRoutes(router, api.NewHandler(svc))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      cors.AllowAll().Handler(router),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan bool, 1)
	go gracefulShutdown(srv, logger, done)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	<-done
}

// openDB opens the catalog database and waits for it (it might be starting in docker).
func openDB(dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		logger.Info("waiting for db", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	_ = db.Close()
	return nil, err
}

func gracefulShutdown(srv *http.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
	done <- true
}
