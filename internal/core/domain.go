package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	USD Currency = "usd"
	EUR Currency = "eur"
	RUB Currency = "rub"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Reserved category names produced by the decoder.
const (
	CategoryInit    = "init"
	CategoryAll     = "all"
	CategoryUnknown = "unknown"
)

// Currencies lists the supported currencies in column order.
var Currencies = []Currency{USD, EUR, RUB}

type (
	Currency        string
	TransactionType string

	// Balances holds one figure per currency.
	Balances struct {
		USD decimal.Decimal `json:"usd"`
		EUR decimal.Decimal `json:"eur"`
		RUB decimal.Decimal `json:"rub"`
	}

	// Transaction is a decoded transaction-log row. Amounts only carries
	// currencies whose delta cell was non-zero.
	Transaction struct {
		Date        string // raw DD.MM.YYYY/HH:mm cell text
		Time        time.Time
		Amounts     map[Currency]decimal.Decimal
		Description string
		Type        TransactionType
		Category    string
	}
)

var (
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
)

// ParseCurrency accepts a currency code in any letter case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case USD, EUR, RUB:
		return true
	}
	return false
}

// Symbol returns the sign written into transaction descriptions.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "$"
	case EUR:
		return "€"
	case RUB:
		return "₽"
	}
	return string(c)
}

func (c Currency) String() string { return string(c) }

// Of returns the figure for a currency, zero for unknown ones.
func (b Balances) Of(c Currency) decimal.Decimal {
	switch c {
	case USD:
		return b.USD
	case EUR:
		return b.EUR
	case RUB:
		return b.RUB
	}
	return decimal.Zero
}

// With returns a copy of b with the figure for c replaced.
func (b Balances) With(c Currency, v decimal.Decimal) Balances {
	switch c {
	case USD:
		b.USD = v
	case EUR:
		b.EUR = v
	case RUB:
		b.RUB = v
	}
	return b
}

// Amount reports the signed amount in currency c, if the row touched it.
func (t Transaction) Amount(c Currency) (decimal.Decimal, bool) {
	v, ok := t.Amounts[c]
	return v, ok
}

// Touches reports whether the transaction moved money in currency c.
func (t Transaction) Touches(c Currency) bool {
	_, ok := t.Amounts[c]
	return ok
}

// IsInit reports whether the row is a partition seed row.
func (t Transaction) IsInit() bool {
	return t.Category == CategoryInit
}
