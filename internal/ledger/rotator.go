package ledger

import (
	"context"
	"errors"
	"fmt"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets"
)

type rotateStore interface {
	sheets.ValuesReader
	sheets.PartitionLister
	sheets.PartitionCreator
}

// Rotation describes the outcome of a Rotate call.
type Rotation struct {
	Label   string
	Rotated bool
	From    string // previous active partition, empty when none existed
	Carried core.Balances
}

// Rotator keeps the active partition (the last one) on the current month.
// Rotate is not serialized. Concurrent calls across a month boundary may both
// create the new partition; a duplicate create is tolerated and the header
// block is written at fixed positions, so both converge. An append racing a
// rotation can still land in the previous partition.
type Rotator struct {
	store rotateStore
	init  *Initializer
	now   Clock
}

func NewRotator(store rotateStore, init *Initializer, now Clock) *Rotator {
	return &Rotator{store: store, init: init, now: now}
}

// Active returns the label of the last partition.
func (r *Rotator) Active(ctx context.Context) (string, error) {
	labels, err := r.store.ListPartitions(ctx)
	if err != nil {
		return "", fmt.Errorf("list partitions: %w", err)
	}
	if len(labels) == 0 {
		return "", ErrNoPartition
	}
	return labels[len(labels)-1], nil
}

// Rotate creates and seeds the current month's partition when the active one
// belongs to another month, carrying the closing balances forward.
func (r *Rotator) Rotate(ctx context.Context) (Rotation, error) {
	want := layout.PartitionLabel(r.now())
	active, err := r.Active(ctx)
	switch {
	case errors.Is(err, ErrNoPartition):
		if err := r.create(ctx, want, core.Balances{}); err != nil {
			return Rotation{}, err
		}
		return Rotation{Label: want, Rotated: true}, nil
	case err != nil:
		return Rotation{}, err
	case active == want:
		return Rotation{Label: want}, nil
	}

	values, err := r.store.ReadValues(ctx, active)
	if err != nil {
		return Rotation{}, fmt.Errorf("read partition %q: %w", active, err)
	}
	carried := ClosingBalances(values)
	if err := r.create(ctx, want, carried); err != nil {
		return Rotation{}, err
	}
	return Rotation{Label: want, Rotated: true, From: active, Carried: carried}, nil
}

// Seed makes sure the current month's partition exists and initializes it
// with opening balances. An already initialized partition is left alone.
func (r *Rotator) Seed(ctx context.Context, opening core.Balances) (string, bool, error) {
	label := layout.PartitionLabel(r.now())
	labels, err := r.store.ListPartitions(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list partitions: %w", err)
	}
	if !contains(labels, label) {
		if err := r.store.CreatePartition(ctx, label); err != nil && !errors.Is(err, sheets.ErrPartitionExists) {
			return "", false, fmt.Errorf("create partition %q: %w", label, err)
		}
	}
	written, err := r.init.Initialize(ctx, label, opening)
	if err != nil {
		return "", false, err
	}
	return label, written, nil
}

func (r *Rotator) create(ctx context.Context, label string, opening core.Balances) error {
	if err := r.store.CreatePartition(ctx, label); err != nil && !errors.Is(err, sheets.ErrPartitionExists) {
		return fmt.Errorf("create partition %q: %w", label, err)
	}
	if _, err := r.init.Initialize(ctx, label, opening); err != nil {
		return err
	}
	return nil
}

// ClosingBalances reads the running balances from the last row of a partition.
func ClosingBalances(values [][]string) core.Balances {
	if len(values) == 0 {
		return core.Balances{}
	}
	last := values[len(values)-1]
	var b core.Balances
	for _, cur := range core.Currencies {
		b = b.With(cur, cellNumber(last, layout.BalanceColumn(cur)))
	}
	return b
}

func contains(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
