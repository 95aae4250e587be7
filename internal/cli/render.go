package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
)

var (
	colorHeader = lipgloss.Color("#fe8019")
	colorDim    = lipgloss.Color("#928374")
	colorBar    = lipgloss.Color("#83a598")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleBar    = lipgloss.NewStyle().Foreground(colorBar)
	styleBold   = lipgloss.NewStyle().Bold(true)

	// heat levels from empty to hottest
	heatShades = []string{"  ", "░░", "▒▒", "▓▓", "██"}
	heatColors = []lipgloss.Color{"#3c3836", "#fabd2f", "#fe8019", "#fb4934", "#cc241d"}

	weekdayLabels = [aggregate.Weekdays]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

const barWidth = 30

// RenderSummary writes every view of sum as terminal tables.
func RenderSummary(w io.Writer, sum aggregate.Summary) {
	fmt.Fprintf(w, "%s %s  %s %d\n\n",
		styleBold.Render("Total"), core.FormatAmount(sum.Total),
		styleDim.Render("records"), sum.Count)

	fmt.Fprintln(w, header("Categories"))
	cats := aggregate.SortCategoryTotals(sum.Categories)
	rows := make([][]string, 0, len(cats))
	var maxCat decimal.Decimal
	for _, c := range cats {
		if c.Total.GreaterThan(maxCat) {
			maxCat = c.Total
		}
	}
	for _, c := range cats {
		rows = append(rows, []string{string(c.Category), core.FormatAmount(c.Total), bar(c.Total, maxCat)})
	}
	fmt.Fprintln(w, renderTable([]string{"Category", "Total", ""}, rows))

	fmt.Fprintln(w, header("Months"))
	rows = rows[:0]
	for _, m := range sum.Months {
		rows = append(rows, []string{m.Label, core.FormatAmount(m.Total)})
	}
	fmt.Fprintln(w, renderTable([]string{"Month", "Total"}, rows))

	fmt.Fprintln(w, header("Series ("+string(sum.Granularity)+")"))
	var maxBucket decimal.Decimal
	for _, b := range sum.Series {
		if b.Total.GreaterThan(maxBucket) {
			maxBucket = b.Total
		}
	}
	rows = rows[:0]
	for _, b := range sum.Series {
		rows = append(rows, []string{b.Label, core.FormatAmount(b.Total), bar(b.Total, maxBucket)})
	}
	fmt.Fprintln(w, renderTable([]string{"Period", "Total", ""}, rows))

	fmt.Fprintln(w, header("Heatmap"))
	fmt.Fprintln(w, renderHeatmap(sum.Heatmap))
}

func header(text string) string {
	upper := strings.ToUpper(text)
	return styleHeader.Render(upper) + "\n" + styleDim.Render(strings.Repeat("─", lipgloss.Width(upper)))
}

func bar(v, peak decimal.Decimal) string {
	if peak.IsZero() || !v.IsPositive() {
		return ""
	}
	n := int(v.Div(peak).Mul(decimal.NewFromInt(barWidth)).Ceil().IntPart())
	return styleBar.Render(strings.Repeat("█", n))
}

// renderTable aligns columns by visible width.
func renderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return styleDim.Render("(none)") + "\n"
	}

	const colGap = 2
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(headers) && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(headers)-1 {
				b.WriteString(strings.Repeat(" ", pad+colGap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &styleHeader)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}

// renderHeatmap draws one row per weekday and one cell per hour, shaded by
// intensity.
func renderHeatmap(g aggregate.IntensityGrid) string {
	var b strings.Builder
	b.WriteString("     ")
	for hour := 0; hour < aggregate.Hours; hour += 3 {
		fmt.Fprintf(&b, "%-6s", fmt.Sprintf("%02d", hour))
	}
	b.WriteString("\n")

	for day := range aggregate.Weekdays {
		b.WriteString(styleDim.Render(weekdayLabels[day]) + "  ")
		for hour := range aggregate.Hours {
			level := heatLevel(g.Intensity(day, hour))
			b.WriteString(lipgloss.NewStyle().Foreground(heatColors[level]).Render(heatShades[level]))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s\n", styleDim.Render("max"), core.FormatAmount(g.Max))
	return b.String()
}

// heatLevel maps an intensity in [0, 1] onto a shade index. Any non-zero
// intensity gets at least the first visible shade.
func heatLevel(intensity float64) int {
	if intensity <= 0 {
		return 0
	}
	top := len(heatShades) - 1
	level := int(intensity*float64(top) + 0.999999)
	return min(max(level, 1), top)
}
