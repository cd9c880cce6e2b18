package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ahrav/go-ballot/infrastructure/aggregators"
	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/infrastructure/storage"
	"github.com/ahrav/go-ballot/internal/application"
	"github.com/ahrav/go-ballot/internal/ports"
)

// app bundles the loaded configuration with the open store.
type app struct {
	loaded *application.LoadedConfig
	store  *storage.Store
	logger *slog.Logger
}

// openApp loads the configuration at opts.configPath and opens its store.
// Log lines go to logOut.
func openApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	var loaderOpts []application.ConfigLoaderOption
	if opts.getenv != nil {
		loaderOpts = append(loaderOpts, application.WithGetenv(opts.getenv))
	}
	loader, err := application.NewConfigLoader(loaderOpts...)
	if err != nil {
		return nil, err
	}
	loaded, err := loader.LoadFromFile(ctx, opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(logOut, loaded.Config.Logging)
	if err != nil {
		return nil, err
	}

	storeCfg := storage.DefaultConfig(loaded.Config.Storage.Path)
	if loaded.Config.Storage.InMemory {
		storeCfg = storage.InMemoryConfig()
	}
	storeCfg.SyncWrites = loaded.Config.Storage.SyncWrites
	storeCfg.Logger = logger.With("component", "badger")

	store, err := storage.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	logger.Debug("configuration loaded",
		"survey", loaded.Config.Metadata.Name,
		"items", loaded.Catalog.Len(),
		"fingerprint", loaded.Fingerprint,
	)
	return &app{loaded: loaded, store: store, logger: logger}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) surveyService(observer ports.SurveyObserver) (*application.SurveyService, error) {
	return application.NewSurveyService(application.SurveyDeps{
		Catalog:          a.loaded.Catalog,
		Judgments:        a.store,
		Respondents:      a.store,
		Sessions:         a.store,
		Observer:         observer,
		Logger:           a.logger,
		BlockDuplicateIP: a.loaded.Config.Participation.BlockDuplicateIP,
	})
}

func (a *app) aggregationService(observer ports.SurveyObserver) (*application.AggregationService, error) {
	cfg := a.loaded.Config
	agg, err := aggregators.New(cfg.Aggregation.Method, aggregators.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return application.NewAggregationService(application.AggregationDeps{
		Catalog:      a.loaded.Catalog,
		Respondents:  a.store,
		Aggregator:   agg,
		Aggregates:   a.store,
		PersistStats: cfg.Aggregation.PersistStats,
		Gate:         middleware.NewTokenGate(cfg.Admin.Token),
		Observer:     observer,
		Logger:       a.logger,
	})
}

// newLogger builds the slog logger described by cfg.
func newLogger(w io.Writer, cfg application.LoggingConfig) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	default:
		return nil, errors.New("invalid log format " + cfg.Format)
	}
}
