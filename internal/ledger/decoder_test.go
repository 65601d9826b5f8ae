package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/sheets"
)

// headerBlock returns rows 0..11 of a partition with the given aggregate row.
func headerBlock(agg []string) [][]string {
	rows := make([][]string, layout.SeedRow)
	rows[layout.HeaderRow] = []string{"Category"}
	rows[layout.FirstCategoryRow] = []string{"food", "-10", "-2", "0", "100", "0", "0", "salary"}
	rows[layout.FirstCategoryRow+1] = []string{"transport", "-5", "0", "0"}
	for r := layout.FirstCategoryRow + 2; r <= layout.LastCategoryRow; r++ {
		rows[r] = []string{}
	}
	rows[layout.AggregateRow] = agg
	rows[layout.LogHeaderRow] = []string{layout.LogHeaderSentinel}
	return rows
}

func colored(hex string) *sheets.Color {
	c := sheets.MustColor(hex)
	return &c
}

func TestDecodeInsufficientData(t *testing.T) {
	d := NewDecoder(layout.Default(), time.UTC)
	_, err := d.Decode(make([][]string, layout.MinRows-1), nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = d.Decode(headerBlock([]string{"all"}), nil)
	assert.NoError(t, err)
}

func TestDecodeSummaryAndCategories(t *testing.T) {
	values := append(headerBlock([]string{"all", "-15", "-2", "oops", "100", "0", "0"}),
		[]string{"01.03.2024/10:00", "10", "0", "20", "0", "30", "0", "init"},
		[]string{"02.03.2024/10:00", "5", "-5", "20", "0", "30", "0", "💸 $ transport"},
	)
	snap, err := NewDecoder(layout.Default(), time.UTC).Decode(values, nil)
	require.NoError(t, err)

	assertDec(t, "-15", snap.Summary.Expenses.USD, "usd expenses")
	assertDec(t, "0", snap.Summary.Expenses.RUB, "unparsable rub expenses")
	assertDec(t, "100", snap.Summary.Income.USD, "usd income")
	assertDec(t, "5", snap.Summary.Current.USD, "usd balance")
	assertDec(t, "30", snap.Summary.Current.RUB, "rub balance")

	names := []string{}
	for _, c := range snap.Categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"food", "salary", "transport", "all"}, names)
	assertDec(t, "-10", snap.Categories[0].Amounts[core.USD], "food usd")
	assertDec(t, "100", snap.Categories[1].Amounts[core.USD], "salary usd")
	assert.Equal(t, "#f4cccc", snap.Categories[0].Color)
	assert.Equal(t, "#ffffff", snap.Categories[3].Color)
}

func TestDecodeCategoryFallbackOrder(t *testing.T) {
	reg := layout.Default()
	food := reg.StyleOf("food").Color.Hex()
	salary := reg.StyleOf("salary").Color.Hex()

	values := headerBlock([]string{"all"})
	formats := make([][]sheets.CellFormat, len(values))
	add := func(date, usd, eur, desc string, eurBg *sheets.Color, usdBg *sheets.Color) {
		values = append(values, []string{date, "0", usd, "0", eur, "0", "0", desc})
		f := make([]sheets.CellFormat, layout.ColumnCount)
		f[layout.DeltaColumn(core.USD)].Background = usdBg
		f[layout.DeltaColumn(core.EUR)].Background = eurBg
		formats = append(formats, f)
	}
	white := sheets.White
	// Priority: seed marker, explicit color of the first non-zero currency,
	// description suffix, unknown.
	add("01.03.2024/00:00", "0", "0", "init", nil, colored(food))
	add("01.03.2024/01:00", "0", "-4", "💸 € (x) taxi", colored(food), nil)
	add("01.03.2024/02:00", "-1", "2", "💵 € pay", colored(salary), colored(food))
	add("01.03.2024/03:00", "0", "-4", "💸 € (x) taxi", &white, nil)
	add("01.03.2024/04:00", "0", "-4", "💸 € (x) bus", colored("#123456"), nil)
	add("01.03.2024/05:00", "0", "-4", "💸 € coffee", nil, nil)
	add("01.03.2024/06:00", "0", "-4", "💸 € initial deposit", colored(food), nil)
	add("01.03.2024/07:00", "-3", "-4", "💸 $ (x) fuel", colored(salary), colored("#123456"))

	snap, err := NewDecoder(reg, time.UTC).Decode(values, formats)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 8)

	byDate := map[string]core.Transaction{}
	for _, tx := range snap.Transactions {
		byDate[tx.Date] = tx
	}
	assert.Equal(t, "init", byDate["01.03.2024/00:00"].Category)
	assert.Equal(t, "food", byDate["01.03.2024/01:00"].Category)
	assert.Equal(t, "food", byDate["01.03.2024/02:00"].Category)
	assert.Equal(t, "taxi", byDate["01.03.2024/03:00"].Category)
	assert.Equal(t, "bus", byDate["01.03.2024/04:00"].Category)
	assert.Equal(t, "unknown", byDate["01.03.2024/05:00"].Category)
	assert.Equal(t, "init", byDate["01.03.2024/06:00"].Category)
	// an unmapped first color goes to the description, not the next currency
	assert.Equal(t, "fuel", byDate["01.03.2024/07:00"].Category)
}

func TestDecodeTransactionFields(t *testing.T) {
	values := append(headerBlock([]string{"all"}),
		[]string{"04.03.2024/23:59", "0", "0", "0", "-3.5", "0", "0", "💸 € lunch"},
		[]string{"05.03.2024/14:30", "0", "-20", "0", "0", "0", "0", "💵 $ refund"},
		[]string{""},
		[]string{layout.LogHeaderSentinel},
	)
	snap, err := NewDecoder(layout.Default(), time.UTC).Decode(values, nil)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 2)

	newest := snap.Transactions[0]
	assert.Equal(t, "05.03.2024/14:30", newest.Date)
	assert.Equal(t, core.Income, newest.Type, "income marker wins over the sign")
	assertDec(t, "-20", newest.Amounts[core.USD], "usd")
	assert.False(t, newest.Touches(core.EUR))
	assert.False(t, newest.Touches(core.RUB))

	older := snap.Transactions[1]
	assert.Equal(t, core.Expense, older.Type)
	assertDec(t, "-3.5", older.Amounts[core.EUR], "eur")
	assert.True(t, newest.Time.After(older.Time))
}

func TestDecodeUnparsableDateSortsLast(t *testing.T) {
	values := append(headerBlock([]string{"all"}),
		[]string{"yesterday", "0", "-1", "0", "0", "0", "0", "💸 $ a"},
		[]string{"01.01.2024/00:00", "0", "-1", "0", "0", "0", "0", "💸 $ b"},
	)
	snap, err := NewDecoder(layout.Default(), time.UTC).Decode(values, nil)
	require.NoError(t, err)
	assert.Equal(t, "01.01.2024/00:00", snap.Transactions[0].Date)
	assert.True(t, snap.Transactions[1].Time.IsZero())
}
