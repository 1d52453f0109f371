// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/custody"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/logger"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/metrics"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/program"
	"github.com/rovshanmuradov/launchpad/internal/recorder"
	"github.com/rovshanmuradov/launchpad/internal/server"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	redisstore "github.com/rovshanmuradov/launchpad/internal/storage/redis"
)

const statsInterval = 15 * time.Second

// App is a fully wired launchpad process.
type App struct {
	Program   *program.Program
	Bus       *events.Bus
	Registry  *prometheus.Registry
	Collector *metrics.Collector

	logger        *zap.Logger
	server        *server.Server
	shutdown      *ShutdownHandler
	statsInterval time.Duration
}

// New connects the configured backends and assembles the program, its
// event sinks and the HTTP API. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{
		logger:        log.WithComponent("app"),
		shutdown:      NewShutdownHandler(log.Logger, 30*time.Second),
		statsInterval: statsInterval,
	}
	defer func() {
		if err != nil {
			_ = a.shutdown.Shutdown(context.Background())
		}
	}()

	programID, err := cfg.ProgramID()
	if err != nil {
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Collector = metrics.NewCollector(a.Registry)

	var client *redis.Client
	if cfg.Store.Backend == "redis" || cfg.Redis.PubSub {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.shutdown.Add("redis", client)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var store storage.AccountStore
	var nonces server.NonceStore
	switch cfg.Store.Backend {
	case "redis":
		if store, err = redisstore.NewStore(client, programID); err != nil {
			return nil, err
		}
		if nonces, err = redisstore.NewNonces(client, programID); err != nil {
			return nil, err
		}
	default:
		store = memory.NewStore()
	}

	sinks := []events.Handler{a.Collector}

	var history storage.HistoryStore
	if cfg.Postgres.DSN != "" {
		history, err = postgres.NewStorage(cfg.Postgres.DSN, postgres.Options{
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}, log.WithComponent("postgres"))
		if err != nil {
			return nil, err
		}
		if closer, ok := history.(io.Closer); ok {
			a.shutdown.Add("postgres", closer)
		}
		if err := history.RunMigrations(); err != nil {
			return nil, err
		}
		sinks = append(sinks, recorder.NewHistory(history, log.Logger))
	}
	if cfg.Redis.PubSub {
		sinks = append(sinks, recorder.NewBroadcaster(client, log.Logger))
	}
	if cfg.Events.LogSink {
		sinks = append(sinks, recorder.NewLogSink(log.Logger))
	}

	a.Bus = events.NewBus(log.Logger, cfg.Events.BufferSize)
	detach := recorder.Attach(a.Bus, sinks...)
	a.shutdown.AddFunc("event_sinks", func(context.Context) error {
		detach()
		return nil
	})
	a.shutdown.AddFunc("event_bus", a.Bus.Shutdown)

	ledger := custody.NewMemoryLedger(log.Logger)
	a.Program, err = program.New(programID, program.Deps{
		Store:    store,
		Ledger:   ledger,
		Pools:    amm.NewMemoryPools(ledger, log.Logger),
		Metadata: metadata.NewMemoryRegistry(),
		Events:   a.Bus,
		Observer: a.Collector,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	quoter, err := newQuoter(cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	a.server, err = server.NewServer(server.Deps{
		Handlers: &server.Handlers{
			Program:  a.Program,
			Oracle:   quoter,
			History:  history,
			Exporter: export.NewTradeExporter(log.Logger),
			Gatherer: a.Registry,
		},
		Config: server.Config{
			Addr:            cfg.Server.Addr,
			DevMode:         cfg.Server.DevMode,
			SwapRate:        cfg.Server.SwapRate,
			SwapBurst:       cfg.Server.SwapBurst,
			SwapTTL:         cfg.Server.SwapTTL,
			SignatureWindow: cfg.Server.SignatureWindow,
		},
		Nonces: nonces,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	a.shutdown.AddFunc("http", a.server.Shutdown)

	a.logger.Info("Launchpad assembled",
		zap.String("program_id", programID.String()),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("history", cfg.Postgres.DSN != ""),
		zap.Bool("pubsub", cfg.Redis.PubSub),
		zap.Int("sinks", len(sinks)))
	return a, nil
}

func newQuoter(cfg *config.Config, log *zap.Logger) (oracle.Quoter, error) {
	if httpCfg, ok := cfg.HTTPOracle(); ok {
		q, err := oracle.NewHTTPQuoter(httpCfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create oracle: %w", err)
		}
		return q, nil
	}
	if price := cfg.StaticPrice(); price.IsPositive() {
		return oracle.Static(price), nil
	}
	return nil, nil
}

// Run serves until ctx is cancelled or the server fails, then shuts
// everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening")
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(a.statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.Collector.UpdateBusStats(a.Bus.Stats())
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops the server, drains the event bus and closes backends.
func (a *App) Shutdown(ctx context.Context) error {
	a.Collector.UpdateBusStats(a.Bus.Stats())
	return a.shutdown.Shutdown(ctx)
}
