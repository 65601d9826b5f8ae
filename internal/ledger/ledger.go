// Package ledger is the storage engine: it encodes transactions into a
// spreadsheet partition, decodes partitions back into snapshots and rolls
// the ledger over to a new partition each month.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finsheet/internal/core"
)

var (
	// ErrInsufficientData means the partition lacks the fixed header block.
	ErrInsufficientData = errors.New("insufficient data in partition")
	ErrNoPartition      = errors.New("no ledger partition")
)

// Clock returns the current time in the ledger's timezone.
type Clock func() time.Time

// SystemClock returns a clock reading wall time in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Publisher receives ledger events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, ev core.LedgerEvent) error
}

// Observer is notified of ledger outcomes, typically to update metrics.
type Observer interface {
	ObserveAppend(currency core.Currency, err error)
	ObserveRotation(from, to string)
	ObserveStoreError(op string)
}

type nopObserver struct{}

func (nopObserver) ObserveAppend(core.Currency, error) {}

func (nopObserver) ObserveRotation(string, string) {}

func (nopObserver) ObserveStoreError(string) {}

// cellNumber reads a numeric cell leniently: blanks and garbage count as zero.
func cellNumber(row []string, col int) decimal.Decimal {
	s := strings.TrimSpace(cell(row, col))
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil {
		return d
	}
	return decimal.Zero
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
