// Package layout fixes where things live in a ledger partition and how
// categories are styled. Every other package addresses cells through it.
package layout

import (
	"fmt"
	"strings"
	"time"

	"finsheet/internal/core"
	"finsheet/internal/sheets"
)

// Field is a column of the transaction log.
type Field int

const (
	FieldDate Field = iota
	FieldUSDBalance
	FieldUSDDelta
	FieldEURBalance
	FieldEURDelta
	FieldRUBBalance
	FieldRUBDelta
	FieldDescription
)

// ColumnCount is the width of a transaction-log row.
const ColumnCount = 8

// Row layout, 0-based.
const (
	HeaderRow           = 0
	FirstCategoryRow    = 1
	LastCategoryRow     = 9
	AggregateRow        = 10
	LogHeaderRow        = 11
	SeedRow             = 12
	FirstTransactionRow = 13

	// CategorySlots is the number of category rows per side.
	CategorySlots = LastCategoryRow - FirstCategoryRow + 1

	// MinRows is the smallest partition the decoder accepts.
	MinRows = 12
)

// Header block columns. Spend labels share column 0 with the date.
const (
	SpendLabelColumn  = 0
	IncomeLabelColumn = 7
	// PlaceholderColumn (J) temporarily holds colored cells while a partition is built.
	PlaceholderColumn = 9
)

const (
	LogHeaderSentinel = "Data"
	DateLayout        = "02.01.2006/15:04"
	LabelLayout       = "January 2006"

	IncomeMarker  = "💵"
	ExpenseMarker = "💸"
)

// ColumnIndexOf returns the 0-based column of a log field.
func ColumnIndexOf(f Field) int {
	return int(f)
}

// BalanceColumn is the running-balance column for a currency.
func BalanceColumn(c core.Currency) int {
	switch c {
	case core.USD:
		return ColumnIndexOf(FieldUSDBalance)
	case core.EUR:
		return ColumnIndexOf(FieldEURBalance)
	case core.RUB:
		return ColumnIndexOf(FieldRUBBalance)
	}
	panic(fmt.Sprintf("layout: unknown currency %q", c))
}

// DeltaColumn is the per-transaction amount column for a currency.
func DeltaColumn(c core.Currency) int {
	return BalanceColumn(c) + 1
}

// ExpenseColumn and IncomeColumn are the header-block columns aggregating a currency.
func ExpenseColumn(c core.Currency) int {
	return indexOf(c) + 1
}

func IncomeColumn(c core.Currency) int {
	return indexOf(c) + 4
}

func indexOf(c core.Currency) int {
	for i, cur := range core.Currencies {
		if cur == c {
			return i
		}
	}
	panic(fmt.Sprintf("layout: unknown currency %q", c))
}

// PartitionLabel names the partition for the month containing t, in t's location.
func PartitionLabel(t time.Time) string {
	return t.Format(LabelLayout)
}

// FormatDate renders a transaction timestamp.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses DD.MM.YYYY/HH:mm in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// Marker returns the emoji prefix for a transaction direction.
func Marker(income bool) string {
	if income {
		return IncomeMarker
	}
	return ExpenseMarker
}

// A1 renders a 0-based position in A1 notation.
func A1(row, col int) string {
	return fmt.Sprintf("%s%d", sheets.ColumnLetter(col), row+1)
}
