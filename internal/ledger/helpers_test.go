package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/log"
	"finsheet/internal/sheets"
	"finsheet/internal/sheets/memory"
)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T, store sheets.Store, clock *testClock, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithLogger(log.Discard())}, opts...)
	return NewService(store, layout.Default(), opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, what string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: want %s, got %s", what, want, got)
	}
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []core.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []core.EventKind
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

var errRemote = errors.New("remote unavailable")

// flakyStore fails selected operations.
type flakyStore struct {
	*memory.Store
	failWrite bool
	failRead  bool
	failList  bool
}

func (f *flakyStore) BatchWrite(ctx context.Context, p string, ops []sheets.Operation) error {
	if f.failWrite {
		return errRemote
	}
	return f.Store.BatchWrite(ctx, p, ops)
}

func (f *flakyStore) ReadFormatting(ctx context.Context, p string) ([][]sheets.CellFormat, error) {
	if f.failRead {
		return nil, errRemote
	}
	return f.Store.ReadFormatting(ctx, p)
}

func (f *flakyStore) ListPartitions(ctx context.Context) ([]string, error) {
	if f.failList {
		return nil, errRemote
	}
	return f.Store.ListPartitions(ctx)
}
