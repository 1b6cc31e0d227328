package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"

	"github.com/jengzang/proximity-backend-go/internal/api"
	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/events"
	"github.com/jengzang/proximity-backend-go/internal/handler"
	"github.com/jengzang/proximity-backend-go/internal/ingest"
	"github.com/jengzang/proximity-backend-go/internal/metrics"
	"github.com/jengzang/proximity-backend-go/internal/middleware"
	"github.com/jengzang/proximity-backend-go/internal/mqttbridge"
	"github.com/jengzang/proximity-backend-go/internal/repository"
	"github.com/jengzang/proximity-backend-go/internal/service"
	"github.com/jengzang/proximity-backend-go/internal/tracker"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		msg := "failed to load configuration"
		if apperr.IsConfig(err) {
			msg = "invalid configuration"
		}
		slog.New(tint.NewHandler(os.Stderr, nil)).Error(msg, "err", err)
		os.Exit(1)
	}

	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel, TimeFormat: time.DateTime}))
	slog.SetDefault(log)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 初始化存储
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := events.New(events.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	m := metrics.New()
	locks := tracker.NewKeyedMutex()
	decoder := ingest.NewDecoder(cfg.Shape, cfg.Location)
	ingestService := service.NewIngestService(store, locks, cfg, publisher, m, log)

	if cfg.MQTTBroker != "" {
		bridge := mqttbridge.New(mqttbridge.Config{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		}, decoder, ingestService, log)
		if err := bridge.Start(); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	go limiter.Run(ctx.Done())

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Ingest:    handler.NewIngestHandler(decoder, ingestService, log),
		Readings:  handler.NewReadingHandler(service.NewReadingService(store), log),
		Employees: handler.NewEmployeeHandler(service.NewEmployeeService(store, locks), log),
		Limiter:   limiter,
		Metrics:   m,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Port, "shape", cfg.Shape, "store", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
