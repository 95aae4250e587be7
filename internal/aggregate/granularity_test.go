package aggregate

import (
	"errors"
	"testing"
	"time"
)

func TestWeeklyBucketer_Bucket(t *testing.T) {
	b := WeeklyBucketer{}
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday midnight", monday, monday},
		{"monday evening", time.Date(2025, 3, 3, 22, 15, 0, 0, time.UTC), monday},
		{"wednesday", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), monday},
		{"saturday", time.Date(2025, 3, 8, 23, 59, 0, 0, time.UTC), monday},
		{"sunday belongs to previous monday", time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC), monday},
		{"sunday before the week", time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC), time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC)},
		{"across a year", time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, label := b.Bucket(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("WeeklyBucketer.Bucket() = %v, want %v", got, tt.want)
			}
			if label != tt.want.Format("Jan 2") {
				t.Errorf("WeeklyBucketer.Bucket() label = %q, want %q", label, tt.want.Format("Jan 2"))
			}
		})
	}
}

func TestDailyBucketer_Bucket(t *testing.T) {
	got, label := DailyBucketer{}.Bucket(time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC))
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DailyBucketer.Bucket() = %v, want %v", got, want)
	}
	if label != "Mar 14" {
		t.Errorf("DailyBucketer.Bucket() label = %q, want %q", label, "Mar 14")
	}
}

func TestMonthlyBucketer_Bucket(t *testing.T) {
	got, label := MonthlyBucketer{}.Bucket(time.Date(2024, 11, 30, 23, 0, 0, 0, time.UTC))
	want := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("MonthlyBucketer.Bucket() = %v, want %v", got, want)
	}
	if label != "Nov 24" {
		t.Errorf("MonthlyBucketer.Bucket() label = %q, want %q", label, "Nov 24")
	}
}

func TestBucketer_WindowStart(t *testing.T) {
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		b    Bucketer
		want time.Time
	}{
		{"daily", DailyBucketer{}, time.Date(2025, 2, 12, 18, 0, 0, 0, time.UTC)},
		{"weekly", WeeklyBucketer{}, time.Date(2024, 12, 14, 18, 0, 0, 0, time.UTC)},
		{"monthly", MonthlyBucketer{}, time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.WindowStart(now); !got.Equal(tt.want) {
				t.Errorf("WindowStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    Granularity
		wantErr bool
	}{
		{"daily", Daily, false},
		{"Weekly", Weekly, false},
		{" MONTHLY ", Monthly, false},
		{"", Daily, false},
		{"yearly", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGranularity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGranularity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownGranularity) {
				t.Errorf("ParseGranularity() error = %v, want ErrUnknownGranularity", err)
			}
			if got != tt.want {
				t.Errorf("ParseGranularity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBucketerFor(t *testing.T) {
	for _, g := range Granularities() {
		if b, err := BucketerFor(g); err != nil || b == nil {
			t.Errorf("BucketerFor(%q) = %v, %v", g, b, err)
		}
	}
	if _, err := BucketerFor("hourly"); !errors.Is(err, ErrUnknownGranularity) {
		t.Errorf("BucketerFor(hourly) error = %v, want ErrUnknownGranularity", err)
	}
}
