package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/efreitasn/exchangecore/internal/config"
	"github.com/efreitasn/exchangecore/internal/dispatch"
	"github.com/efreitasn/exchangecore/internal/engine"
	"github.com/efreitasn/exchangecore/internal/eventbus"
	"github.com/efreitasn/exchangecore/internal/handler"
	"github.com/efreitasn/exchangecore/internal/readmodel"
	"github.com/efreitasn/exchangecore/internal/service"
	"github.com/efreitasn/exchangecore/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("exchanged stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run wires the service and serves until a signal arrives or the server
// fails. Every deferred cleanup runs before it returns.
func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event store.
	events, err := openEventStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer events.Close()

	// Read model, rebuilt from the stored histories before serving.
	market := readmodel.NewMarketReadModel()
	if err := market.Rebuild(ctx, events); err != nil {
		return fmt.Errorf("failed to rebuild read model: %w", err)
	}
	logger.Info("read model rebuilt", slog.Int("exchanges", len(market.Exchanges())))

	// Event publication: in-process subscribers first, then NATS if configured.
	bus := eventbus.NewLocalBus()
	bus.Subscribe(market.Handle)
	publishers := eventbus.Multi{bus}
	if cfg.NATSURL != "" {
		nc, err := eventbus.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSConnectTimeout, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		publishers = append(publishers, eventbus.NewNATSPublisher(nc, cfg.NATSSubject))
		logger.Info("publishing events to NATS", slog.String("subject", cfg.NATSSubject))
	}

	// Engine and stores.
	books := engine.NewBookManager()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()

	dispatcher := dispatch.New(cfg.DispatchWorkers, cfg.DispatchQueueSize)
	defer dispatcher.Stop()

	// Services.
	exchangeSvc := service.NewExchangeService(events, publishers, market, books, orderStore, tradeStore, dispatcher, logger)
	marketSvc := service.NewMarketService(market, books, orderStore, tradeStore, dispatcher, cfg.StatsWindow)

	if cfg.SeedFile != "" {
		seed, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		ids, err := exchangeSvc.Seed(ctx, seed)
		if err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
		logger.Info("seed applied", slog.String("file", cfg.SeedFile), slog.Int("exchanges", len(ids)))
	}

	// Router.
	router := handler.NewRouter(exchangeSvc, marketSvc, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	logger.Info("server starting",
		slog.String("addr", addr),
		slog.String("event_store", cfg.EventStore),
		slog.Int("workers", dispatcher.Workers()),
	)

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// The deferred calls then stop the dispatcher, drain NATS and close
	// the event store.
	return serve(srv, sigCh, cfg.ShutdownTimeout, logger)
}

// serve runs srv until stop delivers a signal or the listener fails, then
// shuts the server down gracefully within timeout.
func serve(srv *http.Server, stop <-chan os.Signal, timeout time.Duration, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newLogger builds the JSON slog logger. Logs go to stdout, or to a
// rotating file when LOG_FILE is set. The returned closer releases the file.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.WriteCloser = nopCloser{os.Stdout}
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	return logger, out
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openEventStore(cfg *config.Config) (store.EventStore, error) {
	switch cfg.EventStore {
	case config.EventStoreSQLite:
		s, err := store.OpenSQLEventStore(cfg.EventStorePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return store.NewMemoryEventStore(), nil
	}
}
