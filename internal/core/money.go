// Package core provides the ledger domain model and amount parsing.
//
// This file contains functions for parsing user-typed amounts. Amounts are
// decimals end to end; floats only appear at the spreadsheet boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts user input to a decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Signs are allowed; scientific notation and thousands separators are not.
//
// Examples:
//
//	ParseDecimal("12.34")  -> 12.34, nil
//	ParseDecimal("12,34")  -> 12.34, nil
//	ParseDecimal("-5")     -> -5, nil
//	ParseDecimal("1.2.3")  -> 0, ErrInvalidAmount
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if body == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount is ParseDecimal restricted to strictly positive values.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBalances parses exactly three whitespace-separated amounts in
// usd, eur, rub order. Zero and negative opening balances are allowed.
func ParseBalances(s string) (Balances, error) {
	fields := strings.Fields(s)
	if len(fields) != len(Currencies) {
		return Balances{}, ErrInvalidAmount
	}
	var b Balances
	for i, f := range fields {
		d, err := ParseDecimal(f)
		if err != nil {
			return Balances{}, err
		}
		b = b.With(Currencies[i], d)
	}
	return b, nil
}
