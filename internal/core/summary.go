package core

import "github.com/shopspring/decimal"

// CategorySummary is one category slot of the partition header block.
// Expense amounts are negative, income amounts positive.
type CategorySummary struct {
	Name    string
	Amounts map[Currency]decimal.Decimal
	Color   string
}

// Summary holds the aggregate row totals and the closing balances.
type Summary struct {
	Expenses Balances
	Income   Balances
	Current  Balances
}

// Snapshot is the decoded view of one partition. It is rebuilt on every read.
type Snapshot struct {
	Partition    string
	Summary      Summary
	Categories   []CategorySummary
	Transactions []Transaction
}

type CurrencyBalance struct {
	Expenses decimal.Decimal
	Income   decimal.Decimal
	Balance  decimal.Decimal
}

// HistoryPage is one page of the transaction log, newest first.
type HistoryPage struct {
	Transactions []Transaction
	TotalSize    int
	Skip         int
	Take         int
}

// Balance projects the summary onto one currency.
func (s Summary) Balance(c Currency) CurrencyBalance {
	return CurrencyBalance{
		Expenses: s.Expenses.Of(c),
		Income:   s.Income.Of(c),
		Balance:  s.Current.Of(c),
	}
}

// Project returns a copy of the category keeping only currency c.
func (cs CategorySummary) Project(c Currency) CategorySummary {
	out := CategorySummary{Name: cs.Name, Color: cs.Color, Amounts: map[Currency]decimal.Decimal{}}
	if v, ok := cs.Amounts[c]; ok {
		out.Amounts[c] = v
	}
	return out
}
