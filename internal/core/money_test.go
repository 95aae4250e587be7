package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"12.344", "12.34", true},
		{" 2.50 ", "2.50", true},
		{"0", "0.00", true},
		{"999999999999.99", "999999999999.99", true},
		{"999999999999.994", "999999999999.99", true},
		{"999999999999.995", "", false}, // rounds past the maximum
		{"1000000000000", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestNormalizeAmount(t *testing.T) {
	got, err := NormalizeAmount(decimal.RequireFromString("3.456"))
	if err != nil || FormatAmount(got) != "3.46" {
		t.Fatalf("expected 3.46, got %s (err=%v)", FormatAmount(got), err)
	}
	for _, in := range []string{"-0.001", "-500", "1e13"} {
		if _, err := NormalizeAmount(decimal.RequireFromString(in)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", in, err)
		}
	}
}
