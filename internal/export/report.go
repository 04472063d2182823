// Package export turns a month of transactions into downloadable reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"finboard/internal/core"
)

// ReportHeader is the column layout shared by every report backend.
var ReportHeader = []string{"ID", "Amount", "Description", "Date", "Type", "Category", "Is Recurring", "Recurrence Type"}

// FileName returns the canonical report name for a period.
func FileName(p core.Period) string {
	return fmt.Sprintf("transactions_%s_to_%s.csv", p.First(), p.LastDay())
}

// BuildRows renders transactions as report rows, oldest first. Ties on the
// same day keep ascending ID order so repeated exports are stable.
func BuildRows(transactions []core.Transaction, lookup core.CategoryLookup) [][]string {
	sorted := make([]core.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([][]string, 0, len(sorted))
	for _, t := range sorted {
		recurring := "No"
		recurrence := ""
		if t.IsRecurring {
			recurring = "Yes"
			recurrence = string(t.RecurrencePeriod)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.ID),
			core.FormatAmount(t.Amount),
			t.Description,
			t.Date.String(),
			string(t.Kind),
			t.Category.Resolve(lookup),
			recurring,
			recurrence,
		})
	}
	return rows
}

// WriteCSV streams a header plus rows to w in CSV form.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
