package http

import (
	"github.com/shopspring/decimal"

	"finsheet/internal/core"
)

// Wire shapes. Currency fields are omitted when a row did not touch that
// currency or a filter excluded it.

type transactionDTO struct {
	Date        string   `json:"date"`
	USD         *float64 `json:"usd,omitempty"`
	EUR         *float64 `json:"eur,omitempty"`
	RUB         *float64 `json:"rub,omitempty"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
}

type historyDTO struct {
	Transactions []transactionDTO `json:"transactions"`
	TotalSize    int              `json:"totalSize"`
	Skip         int              `json:"skip"`
	Take         int              `json:"take"`
}

type categoryDTO struct {
	Name  string   `json:"name"`
	USD   *float64 `json:"usd,omitempty"`
	EUR   *float64 `json:"eur,omitempty"`
	RUB   *float64 `json:"rub,omitempty"`
	Color string   `json:"color,omitempty"`
}

type summaryDTO struct {
	TotalUSDExpenses  float64 `json:"totalUsdExpenses"`
	TotalEURExpenses  float64 `json:"totalEurExpenses"`
	TotalRUBExpenses  float64 `json:"totalRubExpenses"`
	TotalUSDIncome    float64 `json:"totalUsdIncome"`
	TotalEURIncome    float64 `json:"totalEurIncome"`
	TotalRUBIncome    float64 `json:"totalRubIncome"`
	CurrentUSDBalance float64 `json:"currentUsdBalance"`
	CurrentEURBalance float64 `json:"currentEurBalance"`
	CurrentRUBBalance float64 `json:"currentRubBalance"`
}

type overviewDTO struct {
	Sheet        string           `json:"sheet"`
	Summary      summaryDTO       `json:"summary"`
	Categories   []categoryDTO    `json:"categories"`
	Transactions []transactionDTO `json:"transactions"`
}

type balanceDTO struct {
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
	Balance  float64 `json:"balance"`
}

type sheetsDTO struct {
	Sheets []string `json:"sheets"`
	Active string   `json:"active,omitempty"`
}

type errorDTO struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func optional(m map[core.Currency]decimal.Decimal, c core.Currency) *float64 {
	v, ok := m[c]
	if !ok {
		return nil
	}
	f := num(v)
	return &f
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		Date:        t.Date,
		USD:         optional(t.Amounts, core.USD),
		EUR:         optional(t.Amounts, core.EUR),
		RUB:         optional(t.Amounts, core.RUB),
		Description: t.Description,
		Type:        string(t.Type),
		Category:    t.Category,
	}
}

func toTransactionDTOs(ts []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

func toCategoryDTOs(cs []core.CategorySummary) []categoryDTO {
	out := make([]categoryDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryDTO{
			Name:  c.Name,
			USD:   optional(c.Amounts, core.USD),
			EUR:   optional(c.Amounts, core.EUR),
			RUB:   optional(c.Amounts, core.RUB),
			Color: c.Color,
		})
	}
	return out
}

func toSummaryDTO(s core.Summary) summaryDTO {
	return summaryDTO{
		TotalUSDExpenses:  num(s.Expenses.USD),
		TotalEURExpenses:  num(s.Expenses.EUR),
		TotalRUBExpenses:  num(s.Expenses.RUB),
		TotalUSDIncome:    num(s.Income.USD),
		TotalEURIncome:    num(s.Income.EUR),
		TotalRUBIncome:    num(s.Income.RUB),
		CurrentUSDBalance: num(s.Current.USD),
		CurrentEURBalance: num(s.Current.EUR),
		CurrentRUBBalance: num(s.Current.RUB),
	}
}

func toBalancesDTO(m map[core.Currency]core.CurrencyBalance) map[string]balanceDTO {
	out := make(map[string]balanceDTO, len(m))
	for c, b := range m {
		out[c.String()] = balanceDTO{
			Expenses: num(b.Expenses),
			Income:   num(b.Income),
			Balance:  num(b.Balance),
		}
	}
	return out
}
