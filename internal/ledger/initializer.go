package ledger

import (
	"context"
	"fmt"
	"time"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets"
)

type initStore interface {
	sheets.ValuesReader
	sheets.BatchWriter
}

// Initializer writes the fixed header block and seed row into an empty partition.
type Initializer struct {
	store    initStore
	registry *layout.Registry
	now      Clock
}

func NewInitializer(store initStore, registry *layout.Registry, now Clock) *Initializer {
	return &Initializer{store: store, registry: registry, now: now}
}

// Initialize lays out partition label with the given opening balances. It is
// a no-op returning false when the partition already has any content.
func (i *Initializer) Initialize(ctx context.Context, label string, opening core.Balances) (bool, error) {
	values, err := i.store.ReadValues(ctx, label)
	if err != nil {
		return false, fmt.Errorf("read partition %q: %w", label, err)
	}
	if len(values) > 0 {
		return false, nil
	}
	if err := i.store.BatchWrite(ctx, label, BuildPartition(i.registry, opening, i.now())); err != nil {
		return false, fmt.Errorf("initialize partition %q: %w", label, err)
	}
	return true, nil
}

var headerTitles = []string{"Category", "USD expenses", "EUR expenses", "RUB expenses", "USD income", "EUR income", "RUB income", "Income category"}

var logTitles = []string{layout.LogHeaderSentinel, "USD", "USD Δ", "EUR", "EUR Δ", "RUB", "RUB Δ", "Description"}

// BuildPartition returns the operations that lay out a fresh partition.
func BuildPartition(reg *layout.Registry, opening core.Balances, at time.Time) []sheets.Operation {
	block := make([][]sheets.Cell, layout.SeedRow+1)
	for r := range block {
		block[r] = make([]sheets.Cell, layout.ColumnCount)
	}

	for c, title := range headerTitles {
		block[layout.HeaderRow][c] = sheets.Text(title).Strong()
	}

	spend, income := reg.Spend(), reg.Income()
	placeholders := make([][]sheets.Cell, layout.CategorySlots)
	for slot := 0; slot < layout.CategorySlots; slot++ {
		row := block[layout.FirstCategoryRow+slot]
		placeholders[slot] = []sheets.Cell{sheets.Empty()}
		if slot < len(spend) {
			s := spend[slot]
			row[layout.SpendLabelColumn] = sheets.Text(s.Name).Colored(s.Style.Color)
			for _, cur := range core.Currencies {
				row[layout.ExpenseColumn(cur)] = sheets.Formula(sumByColor(cur, s.Style.Color))
			}
			placeholders[slot][0] = sheets.Empty().Colored(s.Style.Color)
		}
		if slot < len(income) {
			in := income[slot]
			row[layout.IncomeLabelColumn] = sheets.Text(in.Name).Colored(in.Style.Color)
			for _, cur := range core.Currencies {
				row[layout.IncomeColumn(cur)] = sheets.Formula(sumByColor(cur, in.Style.Color))
			}
		}
	}

	agg := block[layout.AggregateRow]
	agg[0] = sheets.Text(core.CategoryAll).Strong()
	for c := 1; c <= 6; c++ {
		agg[c] = sheets.Formula(fmt.Sprintf("=SUM(%s:%s)",
			layout.A1(layout.FirstCategoryRow, c), layout.A1(layout.LastCategoryRow, c)))
	}

	for c, title := range logTitles {
		block[layout.LogHeaderRow][c] = sheets.Text(title).Strong()
	}

	seed := block[layout.SeedRow]
	seed[layout.ColumnIndexOf(layout.FieldDate)] = sheets.Text(layout.FormatDate(at))
	for _, cur := range core.Currencies {
		seed[layout.BalanceColumn(cur)] = sheets.Number(opening.Of(cur).InexactFloat64())
		seed[layout.DeltaColumn(cur)] = sheets.Number(0)
	}
	seed[layout.ColumnIndexOf(layout.FieldDescription)] = sheets.Text(core.CategoryInit)

	return []sheets.Operation{
		sheets.UpdateCells{Row: 0, Col: 0, Rows: block},
		sheets.UpdateCells{Row: layout.FirstCategoryRow, Col: layout.PlaceholderColumn, Rows: placeholders},
		sheets.DeleteRange{
			StartRow: layout.FirstCategoryRow,
			EndRow:   layout.LastCategoryRow + 1,
			StartCol: layout.PlaceholderColumn,
			EndCol:   layout.PlaceholderColumn + 1,
		},
	}
}

// sumByColor aggregates the delta column of cur over every transaction row
// whose background is color.
func sumByColor(cur core.Currency, color sheets.Color) string {
	col := layout.DeltaColumn(cur)
	return fmt.Sprintf(`=SUMBYCOLOR(%s:%s,"%s")`,
		layout.A1(layout.FirstTransactionRow, col), sheets.ColumnLetter(col), color.Hex())
}
