package cli

import (
	"context"
	"errors"
	"fmt"

	"finsheet/internal/amqp"
	"finsheet/internal/backend"
	"finsheet/internal/config"
	"finsheet/internal/layout"
	"finsheet/internal/ledger"
	"finsheet/internal/log"
	"finsheet/internal/metrics"
)

// app holds what every command shares: config, logging and the ledger on
// top of the configured backend.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	registry  *layout.Registry
	backend   *backend.Result
	publisher *amqp.Client
	metrics   *metrics.Metrics
	ledger    *ledger.Service
}

type appOptions struct {
	metrics bool
	events  bool
}

// loadConfig reads and validates configuration and builds the logger.
func loadConfig() (*config.Config, *log.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	logger := log.New(lc)
	log.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	a.registry = layout.Default()
	if cfg.CategoriesFile != "" {
		if a.registry, err = layout.LoadFile(cfg.CategoriesFile); err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if a.backend, err = backend.NewFactory(logger).CreateBackend(ctx, bc); err != nil {
		return nil, err
	}

	ledgerOpts := []ledger.Option{ledger.WithLocation(loc), ledger.WithLogger(logger)}
	if opts.metrics {
		a.metrics = metrics.New()
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(a.metrics))
	}
	if opts.events && cfg.EventsEnabled() {
		// the ledger keeps working without the broker; events are best effort
		a.publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			ledgerOpts = append(ledgerOpts, ledger.WithPublisher(a.publisher))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	a.ledger = ledger.NewService(a.backend.Store, a.registry, ledgerOpts...)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.backend.Close())
	return errors.Join(errs...)
}
