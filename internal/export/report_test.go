package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

func tx(id int64, kind core.TransactionKind, amount string, date core.Date, desc string, cat core.CategoryRef) core.Transaction {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          id,
		Amount:      d,
		Description: desc,
		Date:        date,
		Kind:        kind,
		Category:    cat,
	}
}

func TestFileName(t *testing.T) {
	got := FileName(core.Period{Year: 2025, Month: 7})
	want := "transactions_2025-07-01_to_2025-07-31.csv"
	if got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}

	got = FileName(core.Period{Year: 2024, Month: 2})
	want = "transactions_2024-02-01_to_2024-02-29.csv"
	if got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestBuildRows(t *testing.T) {
	lookup := core.CategoryLookup{1: "Groceries", 2: "Salary"}

	transactions := []core.Transaction{
		tx(30, core.Expense, "42.50", core.NewDate(2025, 7, 15), "Weekly shop", core.CategoryRef{ID: 1}),
		tx(10, core.Income, "3000", core.NewDate(2025, 7, 1), "July salary", core.CategoryRef{ID: 2}),
		tx(20, core.Expense, "12", core.NewDate(2025, 7, 15), "Lunch", core.CategoryRef{Name: "Eating Out"}),
	}
	transactions[0].IsRecurring = true
	transactions[0].RecurrencePeriod = core.Weekly

	rows := BuildRows(transactions, lookup)

	if len(rows) != 3 {
		t.Fatalf("BuildRows() returned %d rows, want 3", len(rows))
	}

	// Oldest first, same-day ties in ID order.
	wantFirst := []string{"10", "3000.00", "July salary", "2025-07-01", "income", "Salary", "No", ""}
	if !reflect.DeepEqual(rows[0], wantFirst) {
		t.Errorf("rows[0] = %v, want %v", rows[0], wantFirst)
	}

	if rows[1][0] != "20" || rows[2][0] != "30" {
		t.Errorf("same-day tie order = %s, %s, want 20, 30", rows[1][0], rows[2][0])
	}

	// Name-only category refs resolve to their own name.
	if rows[1][5] != "Eating Out" {
		t.Errorf("rows[1] category = %q, want Eating Out", rows[1][5])
	}

	// Recurring flag and period.
	if rows[2][6] != "Yes" || rows[2][7] != "weekly" {
		t.Errorf("rows[2] recurring columns = %q, %q, want Yes, weekly", rows[2][6], rows[2][7])
	}
}

func TestBuildRows_UnknownCategory(t *testing.T) {
	transactions := []core.Transaction{
		tx(1, core.Expense, "5", core.NewDate(2025, 7, 2), "Mystery", core.CategoryRef{ID: 99}),
	}

	rows := BuildRows(transactions, core.CategoryLookup{})
	if rows[0][5] != core.UnknownCategory {
		t.Errorf("category = %q, want %q", rows[0][5], core.UnknownCategory)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := [][]string{
		{"1", "10.00", "Coffee", "2025-07-02", "expense", "Eating Out", "No", ""},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("WriteCSV() produced %d lines, want 2", len(lines))
	}
	if lines[0] != strings.Join(ReportHeader, ",") {
		t.Errorf("header = %q, want %q", lines[0], strings.Join(ReportHeader, ","))
	}
	if lines[1] != "1,10.00,Coffee,2025-07-02,expense,Eating Out,No," {
		t.Errorf("row = %q", lines[1])
	}
}

func TestDirWriter_WriteReport(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDirWriter(filepath.Join(dir, "exports"))
	if err != nil {
		t.Fatalf("NewDirWriter() error = %v", err)
	}

	period := core.Period{Year: 2025, Month: 7}
	rows := [][]string{
		{"1", "10.00", "Coffee", "2025-07-02", "expense", "Eating Out", "No", ""},
	}

	path, err := w.WriteReport(context.Background(), period, rows)
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if filepath.Base(path) != FileName(period) {
		t.Errorf("report path = %q, want base %q", path, FileName(period))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Coffee") {
		t.Errorf("report content missing row data: %q", string(data))
	}
}
