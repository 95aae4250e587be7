// Package aggregate derives summary views from a snapshot of expenses.
//
// This file implements the Strategy Pattern for time-series bucketing.
// Each granularity (daily, weekly, monthly) has its own strategy that
// encapsulates the trailing window and the bucket a record falls into.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Granularity selects the bucket size of a time series.
type Granularity string

var ErrUnknownGranularity = errors.New("unknown granularity")

// ParseGranularity accepts the granularity names case-insensitively.
// An empty string selects Daily.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Daily, nil
	}
	g := Granularity(s)
	if _, ok := bucketers[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
	return g, nil
}

// Bucketer is the strategy interface for one granularity.
// All times are expected in the location the caller aggregates in.
type Bucketer interface {
	// WindowStart returns the earliest instant of the trailing window ending at now.
	WindowStart(now time.Time) time.Time
	// Bucket returns the start instant of the bucket containing t and its label.
	Bucket(t time.Time) (start time.Time, label string)
}

// DailyBucketer groups by calendar day over the last 30 days.
type DailyBucketer struct{}

func (DailyBucketer) WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -30)
}

func (DailyBucketer) Bucket(t time.Time) (time.Time, string) {
	d := startOfDay(t)
	return d, d.Format("Jan 2")
}

// WeeklyBucketer groups by ISO week over the last 90 days.
// A week starts on Monday; Sunday belongs to the week of the Monday six days before.
type WeeklyBucketer struct{}

func (WeeklyBucketer) WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -90)
}

func (WeeklyBucketer) Bucket(t time.Time) (time.Time, string) {
	d := startOfDay(t)
	sinceMonday := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -sinceMonday)
	return monday, monday.Format("Jan 2")
}

// MonthlyBucketer groups by calendar month and year over the last 12 months.
type MonthlyBucketer struct{}

func (MonthlyBucketer) WindowStart(now time.Time) time.Time {
	return now.AddDate(0, -12, 0)
}

func (MonthlyBucketer) Bucket(t time.Time) (time.Time, string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first, first.Format("Jan 06")
}

var bucketers = map[Granularity]Bucketer{
	Daily:   DailyBucketer{},
	Weekly:  WeeklyBucketer{},
	Monthly: MonthlyBucketer{},
}

// BucketerFor returns the strategy for a granularity.
func BucketerFor(g Granularity) (Bucketer, error) {
	b, ok := bucketers[g]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	return b, nil
}

// Granularities lists the supported granularities in ascending bucket size.
func Granularities() []Granularity {
	return []Granularity{Daily, Weekly, Monthly}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
