package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets"
)

// Input is a transaction as entered by the user. Amount is unsigned; the
// category's style decides the direction.
type Input struct {
	Currency    core.Currency
	Category    string
	Amount      decimal.Decimal
	Description string
}

func (in Input) Validate() error {
	if !in.Currency.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidCurrency, in.Currency)
	}
	if strings.TrimSpace(in.Category) == "" {
		return core.ErrEmptyCategory
	}
	if !in.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	return nil
}

// Receipt describes an appended row. Row is the 1-based sheet row.
type Receipt struct {
	Partition   string
	Row         int
	Date        string
	Currency    core.Currency
	Category    string
	Signed      decimal.Decimal
	Income      bool
	Description string
}

type encodeStore interface {
	sheets.ValuesReader
	sheets.BatchWriter
}

// Encoder appends transactions to the active partition.
type Encoder struct {
	store    encodeStore
	registry *layout.Registry
	rotator  *Rotator
	now      Clock
}

func NewEncoder(store encodeStore, registry *layout.Registry, rotator *Rotator, now Clock) *Encoder {
	return &Encoder{store: store, registry: registry, rotator: rotator, now: now}
}

// Append rotates if needed, then writes one row to the active partition.
func (e *Encoder) Append(ctx context.Context, in Input) (Receipt, Rotation, error) {
	if err := in.Validate(); err != nil {
		return Receipt{}, Rotation{}, err
	}
	rot, err := e.rotator.Rotate(ctx)
	if err != nil {
		return Receipt{}, Rotation{}, fmt.Errorf("rotate: %w", err)
	}
	active, err := e.rotator.Active(ctx)
	if err != nil {
		return Receipt{}, rot, err
	}
	values, err := e.store.ReadValues(ctx, active)
	if err != nil {
		return Receipt{}, rot, fmt.Errorf("read partition %q: %w", active, err)
	}
	if len(values) <= layout.SeedRow {
		return Receipt{}, rot, fmt.Errorf("%w: %q has %d rows", ErrInsufficientData, active, len(values))
	}

	cells, rcpt := EncodeRow(e.registry, in, len(values)+1, e.now())
	rcpt.Partition = active
	if err := e.store.BatchWrite(ctx, active, []sheets.Operation{sheets.AppendRow{Cells: cells}}); err != nil {
		return Receipt{}, rot, fmt.Errorf("append to %q: %w", active, err)
	}
	return rcpt, rot, nil
}

// EncodeRow builds the cells of transaction row n (1-based). Every currency
// gets a running-balance formula; only the chosen currency gets a non-zero,
// colored delta.
func EncodeRow(reg *layout.Registry, in Input, n int, at time.Time) ([]sheets.Cell, Receipt) {
	style := reg.StyleOf(in.Category)
	signed := in.Amount
	if !style.Income {
		signed = signed.Neg()
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = strings.TrimSpace(in.Category)
	}
	desc = fmt.Sprintf("%s %s %s", layout.Marker(style.Income), in.Currency.Symbol(), desc)

	cells := make([]sheets.Cell, layout.ColumnCount)
	date := layout.FormatDate(at)
	cells[layout.ColumnIndexOf(layout.FieldDate)] = sheets.Text(date)
	for _, cur := range core.Currencies {
		bal, delta := layout.BalanceColumn(cur), layout.DeltaColumn(cur)
		cells[bal] = sheets.Formula(fmt.Sprintf("=%s+%s", layout.A1(n-2, bal), layout.A1(n-1, delta)))
		if cur == in.Currency {
			cells[delta] = sheets.Number(signed.InexactFloat64()).Colored(style.Color)
		} else {
			cells[delta] = sheets.Number(0)
		}
	}
	cells[layout.ColumnIndexOf(layout.FieldDescription)] = sheets.Text(desc)

	return cells, Receipt{
		Row:         n,
		Date:        date,
		Currency:    in.Currency,
		Category:    strings.TrimSpace(in.Category),
		Signed:      signed,
		Income:      style.Income,
		Description: desc,
	}
}
