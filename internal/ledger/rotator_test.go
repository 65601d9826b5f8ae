package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets/memory"
)

func newRotator(store *memory.Store, clock *testClock) *Rotator {
	init := NewInitializer(store, layout.Default(), clock.Now)
	return NewRotator(store, init, clock.Now)
}

func TestRotateNoopWhenCurrent(t *testing.T) {
	ctx := context.Background()
	store := memory.New("March 2024")
	rot, err := newRotator(store, newTestClock(march5)).Rotate(ctx)
	require.NoError(t, err)
	assert.False(t, rot.Rotated)
	assert.Equal(t, "March 2024", rot.Label)

	labels, _ := store.ListPartitions(ctx)
	assert.Equal(t, []string{"March 2024"}, labels)
}

func TestRotateCreatesFirstPartitionWithZeroBalances(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rot, err := newRotator(store, newTestClock(march5)).Rotate(ctx)
	require.NoError(t, err)
	assert.True(t, rot.Rotated)
	assert.Empty(t, rot.From)

	values, err := store.ReadValues(ctx, "March 2024")
	require.NoError(t, err)
	assert.Equal(t, "0", values[layout.SeedRow][layout.BalanceColumn(core.USD)])
}

func TestRotateCarriesClosingBalances(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock(time.Date(2024, time.January, 31, 23, 0, 0, 0, time.UTC))
	store := memory.New()
	svc := newTestService(t, store, clock)

	_, _, err := svc.Seed(ctx, core.Balances{USD: dec("100"), EUR: dec("50"), RUB: dec("0")})
	require.NoError(t, err)
	_, err = svc.Append(ctx, Input{Currency: core.USD, Category: "food", Amount: dec("30")})
	require.NoError(t, err)

	clock.Set(time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC))
	rot, err := newRotator(store, clock).Rotate(ctx)
	require.NoError(t, err)
	assert.True(t, rot.Rotated)
	assert.Equal(t, "January 2024", rot.From)
	assert.Equal(t, "February 2024", rot.Label)
	assertDec(t, "70", rot.Carried.USD, "carried usd")
	assertDec(t, "50", rot.Carried.EUR, "carried eur")

	labels, _ := store.ListPartitions(ctx)
	assert.Equal(t, []string{"January 2024", "February 2024"}, labels)

	values, err := store.ReadValues(ctx, "February 2024")
	require.NoError(t, err)
	seed := values[layout.SeedRow]
	assert.Equal(t, "70", seed[layout.BalanceColumn(core.USD)])
	assert.Equal(t, "50", seed[layout.BalanceColumn(core.EUR)])
	assert.Equal(t, "0", seed[layout.BalanceColumn(core.RUB)])
	assert.Equal(t, "01.02.2024/09:00", seed[0])
}

func TestRotateUsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	moscow := time.FixedZone("MSK", 3*3600)
	// 22:30 UTC on Jan 31 is already February in UTC+3.
	clock := newTestClock(time.Date(2024, time.January, 31, 22, 30, 0, 0, time.UTC).In(moscow))
	store := memory.New("January 2024")

	rot, err := newRotator(store, clock).Rotate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "February 2024", rot.Label)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := newRotator(store, newTestClock(march5))

	label, written, err := r.Seed(ctx, core.Balances{USD: dec("5")})
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "March 2024", label)

	_, written, err = r.Seed(ctx, core.Balances{USD: dec("6")})
	require.NoError(t, err)
	assert.False(t, written)

	values, _ := store.ReadValues(ctx, label)
	assert.Equal(t, "5", values[layout.SeedRow][1])
	labels, _ := store.ListPartitions(ctx)
	assert.Len(t, labels, 1)
}

func TestActiveWithoutPartitions(t *testing.T) {
	_, err := newRotator(memory.New(), newTestClock(march5)).Active(context.Background())
	assert.ErrorIs(t, err, ErrNoPartition)
}

func TestClosingBalances(t *testing.T) {
	assert.True(t, ClosingBalances(nil).USD.IsZero())

	b := ClosingBalances([][]string{
		{"x"},
		{"01.01.2024/00:00", "1.5", "0", "garbage", "0", ""},
	})
	assertDec(t, "1.5", b.USD, "usd")
	assertDec(t, "0", b.EUR, "eur")
	assertDec(t, "0", b.RUB, "rub")
}
