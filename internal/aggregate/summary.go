package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// Options controls Summarize. A zero Now means time.Now(); a nil Location
// keeps each record's own location; an empty Granularity means Daily.
type Options struct {
	Granularity Granularity
	Now         time.Time
	Location    *time.Location
	// MergeYears folds the same month of different years into one total.
	MergeYears bool
}

// Summary bundles the four views computed from one snapshot.
type Summary struct {
	Count       int                               `json:"count"`
	Total       decimal.Decimal                   `json:"total"`
	Categories  map[core.Category]decimal.Decimal `json:"categories"`
	Months      []MonthTotal                      `json:"months"`
	Granularity Granularity                       `json:"granularity"`
	Series      []TimeBucket                      `json:"series"`
	Heatmap     IntensityGrid                     `json:"heatmap"`
	GeneratedAt time.Time                         `json:"generatedAt"`
}

// Summarize computes every view over records. It neither retains nor
// mutates records.
func Summarize(records []core.Expense, opts Options) (Summary, error) {
	if opts.Granularity == "" {
		opts.Granularity = Daily
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	series, err := Series(records, opts.Granularity, opts.Now, opts.Location)
	if err != nil {
		return Summary{}, err
	}

	months := CalendarMonthTotals(records, opts.Location)
	if opts.MergeYears {
		months = MonthOfYearTotals(records, opts.Location)
	}

	return Summary{
		Count:       len(records),
		Total:       Total(records),
		Categories:  CategoryTotals(records),
		Months:      months,
		Granularity: opts.Granularity,
		Series:      series,
		Heatmap:     Heatmap(records, opts.Location),
		GeneratedAt: in(opts.Now, opts.Location),
	}, nil
}
