package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		out   string
		valid bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{" 2.50 ", "2.5", true},
		{"-50", "-50", true},
		{"1e2", "100", true},
		{"", "", false},
		{"NaN", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if got.Valid != tc.valid {
			t.Fatalf("%q: valid=%v, want %v", tc.in, got.Valid, tc.valid)
		}
		if tc.valid && got.Decimal.String() != tc.out {
			t.Fatalf("%q: got %s, want %s", tc.in, got.Decimal.String(), tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in       string
		currency string
		want     string
	}{
		{"1234.56", "USD", "$1,234.56"},
		{"0", "USD", "$0.00"},
		{"1.005", "usd", "$1.01"},
		{"10", "bogus", "$10.00"},
	}
	for _, tc := range cases {
		got := FormatAmount(decimal.RequireFromString(tc.in), tc.currency)
		if got != tc.want {
			t.Fatalf("FormatAmount(%s, %s) = %q, want %q", tc.in, tc.currency, got, tc.want)
		}
	}
}

func TestValidCurrency(t *testing.T) {
	if !ValidCurrency("EUR") || !ValidCurrency("usd") {
		t.Fatalf("expected EUR and usd to be valid")
	}
	if ValidCurrency("XXXX") {
		t.Fatalf("expected XXXX to be invalid")
	}
}
