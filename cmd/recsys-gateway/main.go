package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/recsys-gateway/pkg/cache"
	"github.com/Sternrassler/recsys-gateway/pkg/client"
	"github.com/Sternrassler/recsys-gateway/pkg/coldstart"
	"github.com/Sternrassler/recsys-gateway/pkg/config"
	"github.com/Sternrassler/recsys-gateway/pkg/feedback"
	"github.com/Sternrassler/recsys-gateway/pkg/logging"
	"github.com/Sternrassler/recsys-gateway/pkg/metrics"
	"github.com/Sternrassler/recsys-gateway/pkg/monitoring"
	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/Sternrassler/recsys-gateway/pkg/router"
	"github.com/Sternrassler/recsys-gateway/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type (
	rankReq  = recsys.RankingRequest
	rankResp = recsys.RankingResponse
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:      logging.LogLevel(cfg.LogLevel),
		Pretty:     cfg.LogPretty,
		Output:     os.Stderr,
		Deployment: cfg.DeploymentID,
		Version:    cfg.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Gateway failed")
	}
}

// run serves until ctx is done, then drains feedback and shuts down.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	event := logger.Info()
	for k, v := range cfg.LogSummary() {
		event = event.Str(k, v)
	}
	event.Msg("Starting recsys gateway")

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	app, err := newApp(cfg, store, metrics.Registry, metrics.Gatherer, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := app.close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Feedback queue not drained")
	}
	return nil
}

// openStore connects to Redis, or falls back to the in-process store when
// no Redis URL is configured.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryStore(), func() {}, nil
	}

	opts, err := cache.RedisOptions(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis options: %w", err)
	}
	redisClient := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	return cache.NewRedisStore(redisClient), func() { redisClient.Close() }, nil
}

// app is the wired gateway.
type app struct {
	handler    http.Handler
	dispatcher *feedback.Dispatcher[rankReq, rankResp]
}

func (a *app) close(ctx context.Context) error {
	return a.dispatcher.Close(ctx)
}

// newApp wires every component on top of store. The Monitor is registered
// with reg and /metrics serves gatherer.
func newApp(cfg *config.Config, store cache.Store, reg prometheus.Registerer, gatherer prometheus.Gatherer, logger zerolog.Logger) (*app, error) {
	monitor := monitoring.NewMonitor(cfg.DeploymentID, cfg.Version)
	if err := monitor.Register(reg); err != nil {
		return nil, fmt.Errorf("register monitor: %w", err)
	}

	responses, err := cache.NewResponseCache[rankReq, rankResp](
		cache.NewManager(store),
		cfg.CacheTTL,
		logging.NewLogger("cache"),
	)
	if err != nil {
		return nil, err
	}

	upstreamCfg := client.DefaultConfig(cfg.UpstreamURL)
	upstreamCfg.UserAgent = "recsys-gateway/" + cfg.Version
	upstream, err := client.New[rankReq, rankResp](upstreamCfg, logger)
	if err != nil {
		return nil, err
	}

	correlator := feedback.NewCorrelator[rankReq, rankResp](
		cfg.PredictorUnitID,
		monitor,
		logging.NewLogger("feedback"),
		feedback.WithBase[rankReq, rankResp](feedback.NewBaseFeedback[rankReq, rankResp](monitor, logging.NewLogger("feedback"))),
		feedback.WithLookup[rankReq, rankResp](responses),
		feedback.WithOutcomes[rankReq, rankResp](monitor),
	)
	dispatcher := feedback.NewDispatcher[rankReq, rankResp](correlator, cfg.FeedbackWorkers, cfg.FeedbackQueueSize, logging.NewLogger("feedback"))

	abTest, err := router.NewABTest(cfg.BRatio)
	if err != nil {
		return nil, err
	}

	deps := server.Deps[rankReq, rankResp]{
		Upstream:   upstream,
		Cache:      responses,
		Feedback:   dispatcher,
		Router:     abTest,
		Exceptions: monitor,
		Gatherer:   gatherer,
	}

	if cfg.IsColdStartChild {
		predict, err := coldstart.NewPopularItems(cfg.ColdStartItems)
		if err != nil {
			return nil, err
		}
		aggregator, err := coldstart.NewAggregator[rankReq, rankResp](responses, predict, logger)
		if err != nil {
			return nil, err
		}
		deps.Aggregator = aggregator
	}

	srv, err := server.New[rankReq, rankResp](server.Options{
		UnitID:           cfg.PredictorUnitID,
		IsColdStartChild: cfg.IsColdStartChild,
		ServiceName:      cfg.DeploymentID,
	}, deps, logger)
	if err != nil {
		return nil, err
	}

	return &app{handler: srv.Handler(), dispatcher: dispatcher}, nil
}
