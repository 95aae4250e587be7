// Package export renders a summary as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"spendlens/internal/aggregate"
)

// Sheet names in workbook order.
const (
	SheetCategories = "Categories"
	SheetMonths     = "Months"
	SheetSeries     = "Series"
	SheetHeatmap    = "Heatmap"
)

const (
	colorHeader = "#2D3436"
	colorLow    = "#F5F6FA"
	colorHigh   = "#D63031"
	amountFmt   = 4 // #,##0.00
)

var weekdayNames = [aggregate.Weekdays]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Write encodes sum as an XLSX workbook into w.
func Write(w io.Writer, sum aggregate.Summary) error {
	f, err := Build(sum)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build returns a workbook with one sheet per view.
func Build(sum aggregate.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetCategories); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetMonths, SheetSeries, SheetHeatmap} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, styles, aggregate.Summary) error{
		writeCategories,
		writeMonths,
		writeSeries,
		writeHeatmap,
	}
	for _, step := range steps {
		if err := step(f, st, sum); err != nil {
			f.Close()
			return nil, fmt.Errorf("build workbook: %w", err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	header int
	amount int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles{}, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFmt})
	if err != nil {
		return styles{}, err
	}
	total, err := f.NewStyle(&excelize.Style{
		NumFmt: amountFmt,
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "top", Color: colorHeader, Style: 1}},
	})
	if err != nil {
		return styles{}, err
	}
	return styles{header: header, amount: amount, total: total}, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers ...string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeCategories(f *excelize.File, st styles, sum aggregate.Summary) error {
	if err := writeHeader(f, SheetCategories, st.header, "Category", "Total", "Share"); err != nil {
		return err
	}
	row := 2
	for _, ct := range aggregate.SortCategoryTotals(sum.Categories) {
		share := 0.0
		if !sum.Total.IsZero() {
			share = ct.Total.Div(sum.Total).InexactFloat64()
		}
		if err := f.SetSheetRow(SheetCategories, fmt.Sprintf("A%d", row),
			&[]any{string(ct.Category), ct.Total.InexactFloat64(), share}); err != nil {
			return err
		}
		row++
	}
	if err := f.SetSheetRow(SheetCategories, fmt.Sprintf("A%d", row),
		&[]any{"Total", sum.Total.InexactFloat64()}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetCategories, "B2", fmt.Sprintf("B%d", row-1), st.amount); err != nil {
		return err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetCategories, "C2", fmt.Sprintf("C%d", row), percent); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetCategories, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), st.total); err != nil {
		return err
	}
	return f.SetColWidth(SheetCategories, "A", "C", 18)
}

func writeMonths(f *excelize.File, st styles, sum aggregate.Summary) error {
	if err := writeHeader(f, SheetMonths, st.header, "Month", "Total"); err != nil {
		return err
	}
	for i, m := range sum.Months {
		if err := f.SetSheetRow(SheetMonths, fmt.Sprintf("A%d", i+2),
			&[]any{m.Label, m.Total.InexactFloat64()}); err != nil {
			return err
		}
	}
	if len(sum.Months) > 0 {
		if err := f.SetCellStyle(SheetMonths, "B2", fmt.Sprintf("B%d", len(sum.Months)+1), st.amount); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetMonths, "A", "B", 14)
}

func writeSeries(f *excelize.File, st styles, sum aggregate.Summary) error {
	if err := writeHeader(f, SheetSeries, st.header, "Bucket", "Start", "Total"); err != nil {
		return err
	}
	for i, b := range sum.Series {
		if err := f.SetSheetRow(SheetSeries, fmt.Sprintf("A%d", i+2),
			&[]any{b.Label, b.Start.Format(time.DateOnly), b.Total.InexactFloat64()}); err != nil {
			return err
		}
	}
	if len(sum.Series) > 0 {
		if err := f.SetCellStyle(SheetSeries, "C2", fmt.Sprintf("C%d", len(sum.Series)+1), st.amount); err != nil {
			return err
		}
	}
	if err := f.SetCellValue(SheetSeries, "E1", "Granularity"); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetSeries, "F1", string(sum.Granularity)); err != nil {
		return err
	}
	return f.SetColWidth(SheetSeries, "A", "C", 14)
}

// writeHeatmap lays out weekdays as rows and hours as columns, shaded with a
// colour scale so the sheet reads like the on-screen grid.
func writeHeatmap(f *excelize.File, st styles, sum aggregate.Summary) error {
	headers := make([]string, 0, aggregate.Hours+1)
	headers = append(headers, "Day")
	for h := 0; h < aggregate.Hours; h++ {
		headers = append(headers, fmt.Sprintf("%02d", h))
	}
	if err := writeHeader(f, SheetHeatmap, st.header, headers...); err != nil {
		return err
	}

	for d := 0; d < aggregate.Weekdays; d++ {
		row := make([]any, 0, aggregate.Hours+1)
		row = append(row, weekdayNames[d])
		for h := 0; h < aggregate.Hours; h++ {
			row = append(row, sum.Heatmap.Cells[d][h].InexactFloat64())
		}
		if err := f.SetSheetRow(SheetHeatmap, fmt.Sprintf("A%d", d+2), &row); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(aggregate.Hours + 1)
	area := fmt.Sprintf("B2:%s%d", lastCol, aggregate.Weekdays+1)
	if err := f.SetCellStyle(SheetHeatmap, "B2", fmt.Sprintf("%s%d", lastCol, aggregate.Weekdays+1), st.amount); err != nil {
		return err
	}
	err := f.SetConditionalFormat(SheetHeatmap, area, []excelize.ConditionalFormatOptions{{
		Type:     "2_color_scale",
		Criteria: "=",
		MinType:  "min",
		MaxType:  "max",
		MinColor: colorLow,
		MaxColor: colorHigh,
	}})
	if err != nil {
		return err
	}
	return f.SetColWidth(SheetHeatmap, "B", lastCol, 7)
}
