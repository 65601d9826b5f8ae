// Package breaker guards a spreadsheet store with a circuit breaker so an
// unavailable backend fails fast instead of stalling every bot command.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"finsheet/internal/log"
	"finsheet/internal/sheets"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("spreadsheet backend unavailable")

type Config struct {
	Name                string
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout     time.Duration
	Interval    time.Duration
	MaxRequests uint32
}

func DefaultConfig() Config {
	return Config{
		Name:                "sheets",
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		Interval:            time.Minute,
		MaxRequests:         1,
	}
}

// Store wraps a sheets.Store. Not-found and already-exists answers are
// successful calls as far as the breaker is concerned.
type Store struct {
	next sheets.Store
	cb   *gobreaker.CircuitBreaker
}

var _ sheets.Store = (*Store)(nil)

func New(next sheets.Store, cfg Config, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Store{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state, e.g. for readiness checks.
func (s *Store) State() gobreaker.State { return s.cb.State() }

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, sheets.ErrPartitionNotFound) ||
		errors.Is(err, sheets.ErrPartitionExists) ||
		errors.Is(err, context.Canceled)
}

func (s *Store) execute(fn func() (interface{}, error)) (interface{}, error) {
	v, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrOpen, err)
	}
	return v, err
}

func (s *Store) ReadValues(ctx context.Context, partition string) ([][]string, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.next.ReadValues(ctx, partition)
	})
	if err != nil {
		return nil, err
	}
	return v.([][]string), nil
}

func (s *Store) ReadFormatting(ctx context.Context, partition string) ([][]sheets.CellFormat, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.next.ReadFormatting(ctx, partition)
	})
	if err != nil {
		return nil, err
	}
	return v.([][]sheets.CellFormat), nil
}

func (s *Store) ListPartitions(ctx context.Context) ([]string, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.next.ListPartitions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *Store) BatchWrite(ctx context.Context, partition string, ops []sheets.Operation) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.next.BatchWrite(ctx, partition, ops)
	})
	return err
}

func (s *Store) CreatePartition(ctx context.Context, label string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.next.CreatePartition(ctx, label)
	})
	return err
}
