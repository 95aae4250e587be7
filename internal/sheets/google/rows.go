package google

import (
	"fmt"
	"strings"
	"time"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
)

// expenseHeader is row 1 of the expenses tab. Column A holds the expense ID.
var expenseHeader = []any{"ID", "Owner", "Date", "Category", "Description", "Amount", "Updated"}

const expenseLastCol = "G"

var weekdayNames = [aggregate.Weekdays]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func expenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.OwnerID,
		e.Date.UTC().Format(time.RFC3339),
		string(e.Category),
		e.Description,
		core.FormatAmount(e.Amount),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// findRow returns the 1-based sheet row whose first cell equals id, or 0.
// values is column A starting at row 1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// summaryTabName derives one tab per owner so owners never overwrite each
// other.
func summaryTabName(base, ownerID string) string {
	short := ownerID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s %s", strings.TrimSpace(base), short)
}

// summaryRows lays the four views out top to bottom, separated by a blank
// row.
func summaryRows(sum aggregate.Summary) [][]any {
	rows := [][]any{
		{"Generated", sum.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Expenses", sum.Count},
		{"Total", core.FormatAmount(sum.Total)},
		{},
		{"Category", "Total"},
	}
	for _, ct := range aggregate.SortCategoryTotals(sum.Categories) {
		rows = append(rows, []any{string(ct.Category), core.FormatAmount(ct.Total)})
	}

	rows = append(rows, []any{}, []any{"Month", "Total"})
	for _, m := range sum.Months {
		rows = append(rows, []any{m.Label, core.FormatAmount(m.Total)})
	}

	rows = append(rows, []any{}, []any{"Series (" + string(sum.Granularity) + ")", "Total"})
	for _, b := range sum.Series {
		rows = append(rows, []any{b.Label, core.FormatAmount(b.Total)})
	}

	header := []any{"Heatmap"}
	for h := 0; h < aggregate.Hours; h++ {
		header = append(header, fmt.Sprintf("%02d", h))
	}
	rows = append(rows, []any{}, header)
	for d := 0; d < aggregate.Weekdays; d++ {
		row := []any{weekdayNames[d]}
		for h := 0; h < aggregate.Hours; h++ {
			row = append(row, core.FormatAmount(sum.Heatmap.Cells[d][h]))
		}
		rows = append(rows, row)
	}
	return rows
}
