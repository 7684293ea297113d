package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/api"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/auth"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/config"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/evaluator"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/logqueue"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/sdk"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := telemetry.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	telemetry.Init()
	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracer")
	}

	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("store")
	}
	defer st.Close()

	if cfg.RulesetFile != "" {
		n, err := store.SeedFromFile(ctx, st, cfg.RulesetFile, cfg.Env)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.RulesetFile).Msg("seed ruleset")
		}
		logger.Info().Int("specs", n).Str("file", cfg.RulesetFile).Msg("ruleset seeded")
	}

	ev := evaluator.New(st, cfg.Env, logger, evaluator.WithSyncInterval(cfg.RulesetSyncInterval))

	sink, err := logqueue.NewSink(ctx, logqueue.SinkOptions{
		Type:          cfg.SinkType,
		DSN:           cfg.DatabaseDSN,
		SQLitePath:    cfg.SQLitePath,
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("event sink")
	}
	queue := logqueue.New(sink, logqueue.SystemClock{}, logger, cfg.LogQueueSize)

	client := sdk.New(cfg.ServerSecret, ev, transport.New(cfg.ServerSecret), queue, sdk.Options{
		API:         cfg.APIBaseURL,
		Environment: cfg.Environment(),
		InitTimeout: cfg.InitTimeout,
		Logger:      logger,
	})
	if err := client.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("sdk initialize")
	}
	rs := ev.Ruleset()
	if rs != nil {
		logger.Info().Int("specs", len(rs.Specs)).Str("etag", rs.ETag).Str("env", cfg.Env).Msg("ruleset loaded")
	} else {
		logger.Warn().Str("state", client.State().String()).Msg("ruleset not loaded yet")
	}

	srvAPI := api.NewServer(api.Deps{
		SDK:            client,
		Store:          st,
		Reloader:       ev,
		Env:            cfg.Env,
		Auth:           auth.NewAuthenticator(cfg.ClientAPIKey, cfg.AdminAPIKey, cfg.AdminKeyHash),
		RateLimitPerIP: cfg.RateLimitPerIP,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(srvAPI.Router(), "sidecar"),
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 3 * time.Second}
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	if err := client.Flush(ctxShut); err != nil {
		logger.Warn().Err(err).Msg("flush before shutdown")
	}
	if err := client.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("sdk shutdown")
	}
	if err := shutdownTracer(ctxShut); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown")
	}
	logger.Info().Msg("stopped")
}
