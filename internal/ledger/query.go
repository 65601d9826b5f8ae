package ledger

import "finsheet/internal/core"

// DefaultPageSize applies when History is asked for a non-positive page.
const DefaultPageSize = 10

// Balances returns expenses, income and closing balance per currency. An
// empty currency selects all three.
func Balances(s core.Snapshot, currency core.Currency) map[core.Currency]core.CurrencyBalance {
	out := map[core.Currency]core.CurrencyBalance{}
	for _, cur := range selected(currency) {
		out[cur] = s.Summary.Balance(cur)
	}
	return out
}

// History pages through the transaction log, newest first, without seed rows.
// A currency keeps only transactions that moved money in it.
func History(s core.Snapshot, currency core.Currency, skip, take int) core.HistoryPage {
	if take <= 0 {
		take = DefaultPageSize
	}
	if skip < 0 {
		skip = 0
	}
	filtered := make([]core.Transaction, 0, len(s.Transactions))
	for _, tx := range s.Transactions {
		if tx.IsInit() {
			continue
		}
		if currency != "" && !tx.Touches(currency) {
			continue
		}
		filtered = append(filtered, tx)
	}
	SortNewestFirst(filtered)

	page := core.HistoryPage{TotalSize: len(filtered), Skip: skip, Take: take, Transactions: []core.Transaction{}}
	if skip >= len(filtered) {
		return page
	}
	end := len(filtered)
	if take < end-skip {
		end = skip + take
	}
	page.Transactions = filtered[skip:end]
	return page
}

// Categories returns every category except the aggregate row, projected
// onto one currency when given.
func Categories(s core.Snapshot, currency core.Currency) []core.CategorySummary {
	out := make([]core.CategorySummary, 0, len(s.Categories))
	for _, c := range s.Categories {
		if c.Name == core.CategoryAll {
			continue
		}
		if currency != "" {
			c = c.Project(currency)
		}
		out = append(out, c)
	}
	return out
}

func selected(currency core.Currency) []core.Currency {
	if currency == "" {
		return core.Currencies
	}
	return []core.Currency{currency}
}
