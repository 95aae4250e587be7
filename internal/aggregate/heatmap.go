package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

const (
	Weekdays = 7
	Hours    = 24
)

// IntensityGrid holds spending per weekday (row 0 is Sunday) and hour of day.
// Every cell is present; cells without records are zero.
type IntensityGrid struct {
	Cells [Weekdays][Hours]decimal.Decimal `json:"cells"`
	Max   decimal.Decimal                  `json:"max"`
}

// Heatmap adds every record into the cell of its weekday and hour, read in loc.
func Heatmap(records []core.Expense, loc *time.Location) IntensityGrid {
	var g IntensityGrid
	for _, r := range records {
		t := in(r.Date, loc)
		day, hour := int(t.Weekday()), t.Hour()
		g.Cells[day][hour] = g.Cells[day][hour].Add(r.Amount)
	}
	for day := range Weekdays {
		for hour := range Hours {
			if g.Cells[day][hour].GreaterThan(g.Max) {
				g.Max = g.Cells[day][hour]
			}
		}
	}
	return g
}

// Intensity scales a cell to [0, 1] against the grid maximum.
// An all-zero grid has zero intensity everywhere.
func (g IntensityGrid) Intensity(day, hour int) float64 {
	if g.Max.IsZero() {
		return 0
	}
	return g.Cells[day][hour].Div(g.Max).InexactFloat64()
}

// Intensities returns Intensity for every cell.
func (g IntensityGrid) Intensities() [Weekdays][Hours]float64 {
	var out [Weekdays][Hours]float64
	for day := range Weekdays {
		for hour := range Hours {
			out[day][hour] = g.Intensity(day, hour)
		}
	}
	return out
}

// Total sums every cell.
func (g IntensityGrid) Total() decimal.Decimal {
	sum := decimal.Zero
	for day := range Weekdays {
		for hour := range Hours {
			sum = sum.Add(g.Cells[day][hour])
		}
	}
	return sum
}
