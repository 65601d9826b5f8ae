package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/log"
	"finsheet/internal/sheets"
)

// Service is the entry point used by the bot, the HTTP API and the CLI.
// Every read fetches the partition again; nothing is cached.
type Service struct {
	store     sheets.Store
	registry  *layout.Registry
	loc       *time.Location
	now       Clock
	publisher Publisher
	observer  Observer
	logger    *log.Logger

	init    *Initializer
	rotator *Rotator
	encoder *Encoder
	decoder *Decoder
}

type Option func(*Service)

// WithLocation sets the timezone used for partition labels and dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides wall time, mostly for tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store sheets.Store, registry *layout.Registry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		loc:      time.UTC,
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = SystemClock(s.loc)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)

	s.init = NewInitializer(store, registry, s.now)
	s.rotator = NewRotator(store, s.init, s.now)
	s.encoder = NewEncoder(store, registry, s.rotator, s.now)
	s.decoder = NewDecoder(registry, s.loc)
	return s
}

func (s *Service) Registry() *layout.Registry { return s.registry }

// Append records a transaction in the active partition, rotating first when
// the month has changed.
func (s *Service) Append(ctx context.Context, in Input) (Receipt, error) {
	rcpt, rot, err := s.encoder.Append(ctx, in)
	s.observeRotation(ctx, rot)
	s.observer.ObserveAppend(in.Currency, err)
	if err != nil {
		if !isInputError(err) {
			s.observer.ObserveStoreError(log.OpAppend)
		}
		return Receipt{}, err
	}

	log.NewStructuredLogger(s.logger).LogTransactionRecorded(ctx,
		rcpt.Partition, rcpt.Row, string(rcpt.Currency), rcpt.Category, rcpt.Signed.String())
	s.publish(ctx, core.LedgerEvent{
		Kind:        core.EventTransactionRecorded,
		Partition:   rcpt.Partition,
		Row:         rcpt.Row,
		Currency:    rcpt.Currency,
		Category:    rcpt.Category,
		Amount:      rcpt.Signed,
		Description: rcpt.Description,
	})
	return rcpt, nil
}

// Rotate exposes the rotator for operators and startup checks.
func (s *Service) Rotate(ctx context.Context) (Rotation, error) {
	rot, err := s.rotator.Rotate(ctx)
	if err != nil {
		s.observer.ObserveStoreError(log.OpRotate)
		return Rotation{}, err
	}
	s.observeRotation(ctx, rot)
	return rot, nil
}

// Seed initializes the current month's partition with opening balances.
// An initialized partition is left untouched and written is false.
func (s *Service) Seed(ctx context.Context, opening core.Balances) (label string, written bool, err error) {
	label, written, err = s.rotator.Seed(ctx, opening)
	if err != nil {
		s.observer.ObserveStoreError(log.OpSeed)
		return "", false, err
	}
	if written {
		s.logger.InfoContext(ctx, "Partition seeded", log.FieldPartition, label)
		b := opening
		s.publish(ctx, core.LedgerEvent{Kind: core.EventPartitionSeeded, Partition: label, Balances: &b})
	}
	return label, written, nil
}

// Partitions lists partition labels in order; the last one is active.
func (s *Service) Partitions(ctx context.Context) ([]string, error) {
	labels, err := s.store.ListPartitions(ctx)
	if err != nil {
		s.observer.ObserveStoreError(log.OpList)
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	return labels, nil
}

// Snapshot decodes partition, or the active one when partition is empty.
func (s *Service) Snapshot(ctx context.Context, partition string) (core.Snapshot, error) {
	if partition == "" {
		active, err := s.rotator.Active(ctx)
		if err != nil {
			return core.Snapshot{}, err
		}
		partition = active
	}

	var (
		values  [][]string
		formats [][]sheets.CellFormat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.store.ReadValues(gctx, partition)
		values = v
		return err
	})
	g.Go(func() error {
		f, err := s.store.ReadFormatting(gctx, partition)
		formats = f
		return err
	})
	if err := g.Wait(); err != nil {
		s.observer.ObserveStoreError(log.OpRead)
		return core.Snapshot{}, fmt.Errorf("read partition %q: %w", partition, err)
	}

	snap, err := s.decoder.Decode(values, formats)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("decode %q: %w", partition, err)
	}
	snap.Partition = partition
	return snap, nil
}

func (s *Service) Balances(ctx context.Context, partition string, currency core.Currency) (map[core.Currency]core.CurrencyBalance, error) {
	snap, err := s.Snapshot(ctx, partition)
	if err != nil {
		return nil, err
	}
	return Balances(snap, currency), nil
}

func (s *Service) History(ctx context.Context, partition string, currency core.Currency, skip, take int) (core.HistoryPage, error) {
	snap, err := s.Snapshot(ctx, partition)
	if err != nil {
		return core.HistoryPage{}, err
	}
	return History(snap, currency, skip, take), nil
}

func (s *Service) Categories(ctx context.Context, partition string, currency core.Currency) ([]core.CategorySummary, error) {
	snap, err := s.Snapshot(ctx, partition)
	if err != nil {
		return nil, err
	}
	return Categories(snap, currency), nil
}

func (s *Service) observeRotation(ctx context.Context, rot Rotation) {
	if !rot.Rotated {
		return
	}
	s.observer.ObserveRotation(rot.From, rot.Label)
	s.logger.InfoContext(ctx, "Partition rotated", "from", rot.From, log.FieldPartition, rot.Label)
	carried := rot.Carried
	s.publish(ctx, core.LedgerEvent{
		Kind:      core.EventPartitionRotated,
		Partition: rot.Label,
		From:      rot.From,
		Balances:  &carried,
	})
}

// publish stamps and sends an event. Failures are logged, never returned.
func (s *Service) publish(ctx context.Context, ev core.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, string(ev.Kind), log.FieldEventID, ev.ID, log.FieldError, err)
	}
}

func isInputError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidCurrency) ||
		errors.Is(err, core.ErrEmptyCategory)
}
