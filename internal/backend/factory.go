package backend

import (
	"context"
	"fmt"

	"finsheet/internal/log"
	"finsheet/internal/sheets"
	"finsheet/internal/sheets/breaker"
	"finsheet/internal/sheets/google"
	"finsheet/internal/sheets/memory"
	"finsheet/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Breaker {
		bc := config.BreakerConfig
		if bc == (breaker.Config{}) {
			bc = breaker.DefaultConfig()
		}
		res.Store = breaker.New(res.Store, bc, f.logger)
		f.logger.Info("Circuit breaker enabled", "consecutive_failures", bc.ConsecutiveFailures, "timeout", bc.Timeout.String())
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := google.New(ctx, config.Google, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend")
	return &Result{Store: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var store sheets.Store = memory.New(config.MemoryPartitions...)
	f.logger.Info("Initialized memory backend", "partitions", len(config.MemoryPartitions))
	return &Result{Store: store}, nil
}
