package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets"
)

// Decoder turns raw partition values and formats into a Snapshot.
type Decoder struct {
	registry *layout.Registry
	loc      *time.Location
}

func NewDecoder(registry *layout.Registry, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{registry: registry, loc: loc}
}

// Decode reads the header block, the aggregate row, the closing balances and
// the transaction log. Transactions come back newest first.
func (d *Decoder) Decode(values [][]string, formats [][]sheets.CellFormat) (core.Snapshot, error) {
	if len(values) < layout.MinRows {
		return core.Snapshot{}, fmt.Errorf("%w: %d rows, need %d", ErrInsufficientData, len(values), layout.MinRows)
	}

	agg := values[layout.AggregateRow]
	var snap core.Snapshot
	for _, cur := range core.Currencies {
		snap.Summary.Expenses = snap.Summary.Expenses.With(cur, cellNumber(agg, layout.ExpenseColumn(cur)))
		snap.Summary.Income = snap.Summary.Income.With(cur, cellNumber(agg, layout.IncomeColumn(cur)))
	}
	snap.Summary.Current = ClosingBalances(values)
	snap.Categories = d.categories(values)

	for r := layout.SeedRow; r < len(values); r++ {
		row := values[r]
		first := strings.TrimSpace(cell(row, 0))
		if first == "" || first == layout.LogHeaderSentinel {
			continue
		}
		snap.Transactions = append(snap.Transactions, d.transaction(row, formatRow(formats, r)))
	}
	SortNewestFirst(snap.Transactions)
	return snap, nil
}

// categories reads the category slots and the "all" row. Spend categories come
// from the label in column 0, income ones from the label in column 7.
func (d *Decoder) categories(values [][]string) []core.CategorySummary {
	var out []core.CategorySummary
	for r := layout.FirstCategoryRow; r <= layout.AggregateRow; r++ {
		row := values[r]
		if name := strings.TrimSpace(cell(row, layout.SpendLabelColumn)); name != "" {
			out = append(out, d.category(name, row, layout.ExpenseColumn))
		}
		if name := strings.TrimSpace(cell(row, layout.IncomeLabelColumn)); name != "" {
			out = append(out, d.category(name, row, layout.IncomeColumn))
		}
	}
	return out
}

func (d *Decoder) category(name string, row []string, column func(core.Currency) int) core.CategorySummary {
	cs := core.CategorySummary{
		Name:    name,
		Amounts: make(map[core.Currency]decimal.Decimal, len(core.Currencies)),
		Color:   d.registry.StyleOf(name).Color.Hex(),
	}
	for _, cur := range core.Currencies {
		cs.Amounts[cur] = cellNumber(row, column(cur))
	}
	return cs
}

func (d *Decoder) transaction(row []string, formats []sheets.CellFormat) core.Transaction {
	desc := cell(row, layout.ColumnIndexOf(layout.FieldDescription))
	tx := core.Transaction{
		Date:        cell(row, layout.ColumnIndexOf(layout.FieldDate)),
		Amounts:     map[core.Currency]decimal.Decimal{},
		Description: desc,
		Type:        core.Expense,
	}
	if t, err := layout.ParseDate(tx.Date, d.loc); err == nil {
		tx.Time = t
	}
	if strings.Contains(desc, layout.IncomeMarker) {
		tx.Type = core.Income
	}
	for _, cur := range core.Currencies {
		if v := cellNumber(row, layout.DeltaColumn(cur)); !v.IsZero() {
			tx.Amounts[cur] = v
		}
	}
	tx.Category = d.resolveCategory(tx, formats)
	return tx
}

// resolveCategory tries, in order: the seed marker, the background of the
// first non-zero delta cell with an explicit color, the description suffix,
// and finally "unknown". Only that one color is consulted.
func (d *Decoder) resolveCategory(tx core.Transaction, formats []sheets.CellFormat) string {
	if strings.Contains(tx.Description, core.CategoryInit) {
		return core.CategoryInit
	}
	for _, cur := range core.Currencies {
		if !tx.Touches(cur) {
			continue
		}
		col := layout.DeltaColumn(cur)
		if col >= len(formats) || !d.registry.IsExplicit(formats[col].Background) {
			continue
		}
		if name, ok := d.registry.CategoryOf(*formats[col].Background); ok {
			return name
		}
		break
	}
	if parts := strings.Split(tx.Description, ") "); len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return core.CategoryUnknown
}

func formatRow(formats [][]sheets.CellFormat, r int) []sheets.CellFormat {
	if r < 0 || r >= len(formats) {
		return nil
	}
	return formats[r]
}

// SortNewestFirst orders transactions by date, descending. Rows with an
// unparsable date sort last.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Time.After(txs[j].Time)
	})
}
