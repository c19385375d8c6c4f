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

	"go.uber.org/zap"

	"matching-core/internal/api"
	"matching-core/internal/config"
	"matching-core/internal/engine"
	"matching-core/internal/logging"
	"matching-core/internal/persistence"
	"matching-core/internal/projection"
	"matching-core/internal/publish"
	"matching-core/internal/symbolspec"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", getenv("APP_CONFIG", ""), "path to the YAML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "matching-core:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	specs, err := newRegistry(cfg.Instruments)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	views := projection.NewProjector(projection.NewMemoryOrderRepository(), projection.NewMemoryTradeRepository(), logger.Named("projection")).
		WithJournal(store)
	publisher := publish.Fanout{views}
	if cfg.Kafka.Enabled {
		publisher = append(publisher, publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout, logger.Named("publish")))
	}
	defer publisher.Close()

	eng := engine.NewEngine(&engine.EngineConfig{
		ShardCount:       cfg.Engine.ShardCount,
		QueueSize:        cfg.Engine.QueueSize,
		IdempotencyTTL:   cfg.Engine.IdempotencyTTL,
		SnapshotInterval: cfg.Engine.SnapshotInterval,
		Journal:          store,
		Publisher:        publisher,
		Logger:           logger.Named("engine"),
	})
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Recover(ctx, persistence.NewRecoveryService(store, store)); err != nil {
		return err
	}
	if err := views.Rebuild(ctx, store); err != nil {
		return err
	}

	router := api.NewRouter(eng, views, specs, logger.Named("api"))
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRegistry(instruments []config.InstrumentConfig) (*symbolspec.Registry, error) {
	specs := make([]symbolspec.Spec, 0, len(instruments))
	for _, inst := range instruments {
		specs = append(specs, symbolspec.Spec{
			BookID:     inst.BookID,
			PriceScale: inst.PriceScale,
			SizeScale:  inst.SizeScale,
		})
	}
	return symbolspec.NewRegistry(symbolspec.Spec{}, specs...)
}

func openStore(dir string) (*persistence.Store, error) {
	if dir == "" {
		return persistence.OpenInMemory()
	}
	return persistence.Open(dir)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
