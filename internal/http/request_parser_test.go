package http

import (
	"net/url"
	"testing"
	"time"

	"finboard/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
	}{
		{
			name:      "explicit year and month",
			query:     url.Values{"year": {"2025"}, "month": {"7"}},
			wantYear:  2025,
			wantMonth: 7,
		},
		{
			name:      "missing params default to current",
			query:     url.Values{},
			wantYear:  now.Year(),
			wantMonth: int(now.Month()),
		},
		{
			name:      "month out of range falls back to current",
			query:     url.Values{"year": {"2025"}, "month": {"13"}},
			wantYear:  2025,
			wantMonth: int(now.Month()),
		},
		{
			name:      "month zero falls back to current",
			query:     url.Values{"year": {"2025"}, "month": {"0"}},
			wantYear:  2025,
			wantMonth: int(now.Month()),
		},
		{
			name:      "year out of range falls back to current",
			query:     url.Values{"year": {"123"}, "month": {"5"}},
			wantYear:  now.Year(),
			wantMonth: 5,
		},
		{
			name:      "non-numeric values ignored",
			query:     url.Values{"year": {"abc"}, "month": {"xyz"}},
			wantYear:  now.Year(),
			wantMonth: int(now.Month()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestMonthParams_Period(t *testing.T) {
	p := MonthParams{Year: 2025, Month: 7}.Period()
	if p != (core.Period{Year: 2025, Month: 7}) {
		t.Errorf("Period() = %+v", p)
	}
}

func TestFormInt64(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
	}{
		{"valid", "42", 42},
		{"empty", "", 0},
		{"whitespace", "  7 ", 7},
		{"non-numeric", "abc", 0},
		{"negative", "-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"id": {tt.value}}
			if got := FormInt64(form, "id"); got != tt.want {
				t.Errorf("FormInt64(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"on", true},
		{"true", true},
		{"1", true},
		{"yes", true},
		{"ON", true},
		{"", false},
		{"off", false},
		{"false", false},
		{"0", false},
	}

	for _, tt := range tests {
		form := url.Values{"is_recurring": {tt.value}}
		if got := FormBool(form, "is_recurring"); got != tt.want {
			t.Errorf("FormBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestFormDate(t *testing.T) {
	t.Run("explicit date", func(t *testing.T) {
		form := url.Values{"date": {"2025-07-15"}}
		d, err := FormDate(form, "date")
		if err != nil {
			t.Fatalf("FormDate: %v", err)
		}
		if d.String() != "2025-07-15" {
			t.Errorf("FormDate = %s, want 2025-07-15", d)
		}
	})

	t.Run("empty defaults to today", func(t *testing.T) {
		d, err := FormDate(url.Values{}, "date")
		if err != nil {
			t.Fatalf("FormDate: %v", err)
		}
		now := time.Now()
		if d.Time.Year() != now.Year() || d.Time.Month() != now.Month() || d.Time.Day() != now.Day() {
			t.Errorf("FormDate default = %s, want today", d)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		form := url.Values{"date": {"15/07/2025"}}
		if _, err := FormDate(form, "date"); err == nil {
			t.Error("FormDate accepted a malformed date")
		}
	})
}

func TestFormKind(t *testing.T) {
	tests := []struct {
		value string
		want  core.TransactionKind
	}{
		{"income", core.Income},
		{"expense", core.Expense},
		{"", core.Expense},
		{"garbage", core.Expense},
	}

	for _, tt := range tests {
		form := url.Values{"type": {tt.value}}
		if got := FormKind(form, "type"); got != tt.want {
			t.Errorf("FormKind(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
