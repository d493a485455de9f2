package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/api"
	"github.com/mr1hm/earthpulse/internal/config"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/geocode"
	"github.com/mr1hm/earthpulse/internal/logging"
	"github.com/mr1hm/earthpulse/internal/monitor"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/prediction"
	"github.com/mr1hm/earthpulse/internal/repository"
	"github.com/mr1hm/earthpulse/internal/session"
	"github.com/mr1hm/earthpulse/internal/sources"
)

const sessionPruneInterval = 10 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logCloser, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		logging.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	logger := slog.Default()
	logger.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geocoder := geocode.NewClient(cfg.Sources.NominatimURL, cfg.Sources.UserAgent, cfg.Sources.FetchTimeout, metrics, logger)
	openData := sources.NewOverpassClient(cfg.Sources.OverpassURL, cfg.Sources.UserAgent, metrics, logger)

	places, direct := newPlacesSource(cfg, metrics, logger)

	fetcher := sources.NewFetcher(openData, places, cfg.Sources.FetchTimeout, metrics, logger)
	aggregator := facility.NewAggregator(fetcher, cfg.Facility.SearchRadius, metrics, logger)

	broadcaster := alerts.NewBroadcaster()
	var push alerts.Notifier
	if cfg.Sources.PushRelayURL != "" {
		push = alerts.NewPushRelay(cfg.Sources.PushRelayURL, db, cfg.Sources.FetchTimeout)
	}
	evaluator := alerts.NewEvaluator(clock, broadcaster, push, db, metrics, logger)

	enricherCfg := facility.EnricherConfig{
		Timeout:     cfg.Sources.FetchTimeout,
		Concurrency: cfg.Facility.EnrichConcurrency,
	}
	store := session.NewStore(clock, cfg.Alerts.HistorySize, func(cache *facility.DetailCache) *facility.Enricher {
		return facility.NewEnricher(places, geocoder, cache, enricherCfg, metrics, logger)
	}, metrics)

	predictor := prediction.NewClient(cfg.Sources.PredictionURL, cfg.Sources.FetchTimeout, metrics, logger)
	service := session.NewService(geocoder, aggregator, predictor, evaluator, metrics, logger)

	sched := monitor.NewScheduler(logger)
	if err := sched.Every("session-prune", sessionPruneInterval, func() {
		if n := store.Prune(cfg.Session.IdleTimeout); n > 0 {
			logger.Info("pruned idle sessions", "count", n)
		}
	}); err != nil {
		logging.Fatalf("Failed to schedule session pruning: %v", err)
	}

	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon = monitor.NewMonitor(cfg.Monitor, cfg.Worker, predictor, evaluator, clock, metrics, logger)
		if err := mon.Start(ctx, sched); err != nil {
			logging.Fatalf("Failed to start risk monitor: %v", err)
		}
	}
	sched.Start()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	opts := api.Options{
		Sessions:      store,
		Service:       service,
		Geocoder:      geocoder,
		Aggregator:    aggregator,
		Broadcaster:   broadcaster,
		Subscriptions: db,
		AlertLog:      db,
		Waterways:     openData,
		Hotspots:      sources.NewFIRMSClient(cfg.Sources.FIRMSURL, cfg.Sources.FetchTimeout, metrics, logger),
		Logger:        logger,
	}
	// Only a direct Maps client is re-exposed; proxying a proxy would loop.
	if direct != nil {
		opts.Places = direct
	}
	api.NewHandler(opts).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	cancel()
	sched.Stop()
	if mon != nil {
		mon.Stop()
	}
	broadcaster.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newPlacesSource picks the places provider. A configured proxy wins over a
// direct API key. direct is set only for the Maps client.
func newPlacesSource(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (places sources.PlacesSource, direct *sources.MapsPlacesClient) {
	switch {
	case cfg.Sources.PlacesProxyURL != "":
		return sources.NewPlacesProxyClient(cfg.Sources.PlacesProxyURL, metrics, logger), nil
	case cfg.Sources.GoogleAPIKey != "":
		client, err := sources.NewMapsPlacesClient(cfg.Sources.GoogleAPIKey, cfg.Facility.SearchRadius)
		if err != nil {
			logging.Fatalf("Failed to create places client: %v", err)
		}
		return client, client
	default:
		logger.Warn("no places provider configured; NGO search limited to open data")
		return nil, nil
	}
}
