// Package worker runs the journal worker: it consumes ledger events from the
// broker and records each one in the SQLite journal exactly once.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finsheet/internal/amqp"
	"finsheet/internal/core"
	"finsheet/internal/log"
)

// Journal stores ledger events idempotently.
type Journal interface {
	RecordEvent(ctx context.Context, ev core.LedgerEvent) (bool, error)
	CountEvents(ctx context.Context) (int, error)
}

// Consumer feeds events to a handler until its context ends.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.EventHandler) error
}

type JournalWorker struct {
	journal        Journal
	consumer       Consumer
	reportInterval time.Duration
	logger         *log.Logger
}

func NewJournalWorker(journal Journal, consumer Consumer, reportInterval time.Duration, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &JournalWorker{
		journal:        journal,
		consumer:       consumer,
		reportInterval: reportInterval,
		logger:         logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent records one event. Redeliveries are acknowledged without a second write.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	inserted, err := w.journal.RecordEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("record event %s: %w", ev.ID, err)
	}
	if !inserted {
		w.logger.InfoContext(ctx, "Ledger event already journaled",
			log.FieldEventID, ev.ID, log.FieldEventKind, string(ev.Kind))
		return nil
	}
	w.logger.InfoContext(ctx, "Ledger event journaled",
		log.FieldEventID, ev.ID,
		log.FieldEventKind, string(ev.Kind),
		log.FieldPartition, ev.Partition)
	return nil
}

// Run consumes until ctx is cancelled and periodically logs the journal size.
// Cancellation is a clean stop and returns nil.
func (w *JournalWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Journal worker started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.consumer.Consume(gctx, w.HandleEvent)
	})
	if w.reportInterval > 0 {
		g.Go(func() error {
			w.report(gctx)
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		w.logger.Info("Journal worker stopped")
		return nil
	}
	return err
}

func (w *JournalWorker) report(ctx context.Context) {
	ticker := time.NewTicker(w.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.journal.CountEvents(ctx)
			if err != nil {
				w.logger.WarnContext(ctx, "Failed to count journal", log.FieldError, err)
				continue
			}
			w.logger.InfoContext(ctx, "Journal status", "events", n)
		}
	}
}
