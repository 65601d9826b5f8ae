package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"42", "42", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseDecimalAllowsSignAndZero(t *testing.T) {
	for in, want := range map[string]string{"-5": "-5", "0": "0", "+3,5": "3.5"} {
		got, err := ParseDecimal(in)
		if err != nil || !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
}

func TestParseBalances(t *testing.T) {
	b, err := ParseBalances("100 50,5 -3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.USD.Equal(decimal.NewFromInt(100)) || !b.EUR.Equal(decimal.RequireFromString("50.5")) || !b.RUB.Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("unexpected balances %+v", b)
	}

	for _, bad := range []string{"", "1 2", "1 2 3 4", "1 x 3"} {
		if _, err := ParseBalances(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}
