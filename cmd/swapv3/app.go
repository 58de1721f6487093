package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"swapv3/internal/config"
	"swapv3/internal/journal"
	"swapv3/internal/ledger"
	"swapv3/internal/model"
	"swapv3/internal/storage"
	"swapv3/internal/storage/pebble"
	"swapv3/internal/storage/postgres"
)

// app bundles what a command needs to run operations against the ledger.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	backend storage.Backend
	ledger  *ledger.Ledger
	journal *storage.JsonlStorage
	// pg is set when the store is postgres; it also keeps replay state.
	pg      *postgres.Store
	metrics *http.Server
}

func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var backend storage.Backend
	switch cfg.Store {
	case config.StoreMemory:
		backend = storage.NewMemoryBackend()
	case config.StorePebble:
		db, err := pebble.Open(cfg.PebblePath, nil)
		if err != nil {
			return nil, err
		}
		backend = db
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		a.pg = store
		backend = store
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.CacheSize > 0 {
		cached, err := storage.NewCachedBackend(backend, cfg.CacheSize)
		if err != nil {
			backend.Close()
			return nil, err
		}
		backend = cached
	}
	a.backend = backend

	var metrics *ledger.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = ledger.NewMetrics(reg)
		a.metrics = serveMetrics(cfg.MetricsAddr, reg, logger)
	}

	var sink storage.EventSink
	if cfg.Events != "" {
		sink = storage.NewJsonlStorage(cfg.Events)
	}
	a.ledger = ledger.New(backend, sink, metrics, logger)
	if cfg.Journal != "" {
		a.journal = storage.NewJsonlStorage(cfg.Journal)
	}

	logger.Debug("ledger open",
		zap.String("store", cfg.Store),
		zap.Int("cache_size", cfg.CacheSize),
		zap.String("events", cfg.Events),
		zap.String("journal", cfg.Journal),
	)
	return a, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}

func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("close backend", zap.Error(err))
	}
}

// execute runs req and appends it to the operation journal once committed.
// A journal failure is logged; the operation stays committed either way.
func (a *app) execute(ctx context.Context, req ledger.Request) (ledger.Result, error) {
	res, err := a.ledger.Execute(ctx, req)
	if err != nil {
		return ledger.Result{}, err
	}
	if a.journal == nil {
		return res, nil
	}
	if err := a.appendJournal(res.Sequence, req); err != nil {
		a.logger.Error("append journal failed", zap.Uint64("sequence", res.Sequence), zap.Error(err))
	}
	return res, nil
}

func (a *app) appendJournal(seq uint64, req ledger.Request) error {
	rec, err := journal.NewOperationRecord(seq, req)
	if err != nil {
		return err
	}
	return a.journal.PutOperations([]model.OperationRecord{rec})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
