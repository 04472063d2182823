package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"12.345", "12.35", true}, // half-up on the third digit
		{"12.344", "12.34", true},
		{" 980 ", "980.00", true},
		{"", "", false},
		{"-5", "", false},
		{"+5", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d (%q): unexpected error %v", i, tc.in, err)
			}
			if got.StringFixed(2) != tc.want {
				t.Fatalf("case %d (%q): got %s, want %s", i, tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("case %d (%q): expected error, got %s", i, tc.in, got)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(decimal.NewFromInt(980), decimal.NewFromInt(1000)); got != 98 {
		t.Fatalf("Percent(980, 1000) = %v", got)
	}
	if got := Percent(decimal.NewFromInt(5), decimal.Zero); got != 0 {
		t.Fatalf("Percent with zero denominator = %v, want 0", got)
	}
}
