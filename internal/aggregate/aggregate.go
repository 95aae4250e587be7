package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

type (
	// CategoryTotal is one entry of a category breakdown, used where a
	// stable order is needed.
	CategoryTotal struct {
		Category core.Category   `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	// MonthTotal is the sum of one month. Month is 0-11; Year is zero when
	// the same month of different years is merged.
	MonthTotal struct {
		Year  int             `json:"year,omitempty"`
		Month int             `json:"month"`
		Label string          `json:"label"`
		Total decimal.Decimal `json:"total"`
	}

	// TimeBucket is one point of a time series, anchored at its start instant.
	TimeBucket struct {
		Label string          `json:"label"`
		Start time.Time       `json:"start"`
		Total decimal.Decimal `json:"total"`
	}
)

// Total sums every amount in records.
func Total(records []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// CategoryTotals sums amounts per category. Category values are used as
// given, without normalization.
func CategoryTotals(records []core.Expense) map[core.Category]decimal.Decimal {
	totals := make(map[core.Category]decimal.Decimal)
	for _, r := range records {
		totals[r.Category] = totals[r.Category].Add(r.Amount)
	}
	return totals
}

// SortCategoryTotals orders a category breakdown by total descending, then by name.
func SortCategoryTotals(totals map[core.Category]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for c, t := range totals {
		out = append(out, CategoryTotal{Category: c, Total: t})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

// MonthOfYearTotals sums amounts per month of the year, merging the same
// month across different years. Months without records are omitted.
// Dates are read in loc; a nil loc keeps each record's own location.
func MonthOfYearTotals(records []core.Expense, loc *time.Location) []MonthTotal {
	var sums [12]decimal.Decimal
	var seen [12]bool
	for _, r := range records {
		m := int(in(r.Date, loc).Month()) - 1
		sums[m] = sums[m].Add(r.Amount)
		seen[m] = true
	}

	out := make([]MonthTotal, 0, 12)
	for m := range 12 {
		if !seen[m] {
			continue
		}
		out = append(out, MonthTotal{
			Month: m,
			Label: time.Month(m + 1).String()[:3],
			Total: sums[m],
		})
	}
	return out
}

// CalendarMonthTotals sums amounts per calendar month of a specific year,
// ordered chronologically. Months without records are omitted.
func CalendarMonthTotals(records []core.Expense, loc *time.Location) []MonthTotal {
	type key struct{ year, month int }
	sums := make(map[key]decimal.Decimal)
	for _, r := range records {
		t := in(r.Date, loc)
		k := key{t.Year(), int(t.Month()) - 1}
		sums[k] = sums[k].Add(r.Amount)
	}

	out := make([]MonthTotal, 0, len(sums))
	for k, total := range sums {
		out = append(out, MonthTotal{
			Year:  k.year,
			Month: k.month,
			Label: fmt.Sprintf("%s %d", time.Month(k.month + 1).String()[:3], k.year),
			Total: total,
		})
	}
	slices.SortFunc(out, func(a, b MonthTotal) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// Series buckets the records dated within [now - window, now] at granularity g
// and returns the non-empty buckets in chronological order.
func Series(records []core.Expense, g Granularity, now time.Time, loc *time.Location) ([]TimeBucket, error) {
	b, err := BucketerFor(g)
	if err != nil {
		return nil, err
	}
	now = in(now, loc)
	return SeriesBetween(records, b, b.WindowStart(now), now, loc), nil
}

// SeriesBetween buckets the records dated within [from, to] using b.
func SeriesBetween(records []core.Expense, b Bucketer, from, to time.Time, loc *time.Location) []TimeBucket {
	index := make(map[int64]int)
	out := make([]TimeBucket, 0)
	for _, r := range records {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		start, label := b.Bucket(in(r.Date, loc))
		k := start.UnixNano()
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, TimeBucket{Label: label, Start: start})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
	}
	slices.SortStableFunc(out, func(a, b TimeBucket) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

func in(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
