package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Writer: &buf}).WithComponent(ComponentSummary)

	logger.InfoContext(context.Background(), "summary computed", FieldRecords, 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentSummary {
		t.Errorf("component = %v, want %s", lines[0][FieldComponent], ComponentSummary)
	}
	if lines[0][FieldRecords] != float64(3) {
		t.Errorf("records = %v, want 3", lines[0][FieldRecords])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	if lines := decodeLines(t, &buf); len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithOwner("u1").
		WithExpense("e1", decimal.RequireFromString("12.50"), "Food").
		WithError(errors.New("boom")).
		WithError(nil)

	if fields[FieldOwnerID] != "u1" || fields[FieldExpenseID] != "e1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if fields[FieldAmount] != "12.5" {
		t.Errorf("amount = %v, want 12.5", fields[FieldAmount])
	}
	if fields[FieldError] != "boom" {
		t.Errorf("error = %v, want boom", fields[FieldError])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(fields))
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf}).WithComponent(ComponentHTTP).With(FieldRequestID, "req-1")

	ctx := NewContext(context.Background(), logger)
	FromContext(ctx).InfoContext(ctx, "inside")

	if got := FromContext(ctx); got != logger {
		t.Fatalf("FromContext returned %+v, want the stored logger", got)
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldRequestID] != "req-1" {
		t.Fatalf("expected request id on log line, got %v", lines)
	}
}

func TestLogAccessLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := New(Config{Writer: &buf})
		r := httptest.NewRequest(http.MethodGet, "/api/summary?granularity=weekly", nil)

		logger.LogAccess(context.Background(), r, Access{
			Route:    "/api/summary/",
			Status:   tt.status,
			Duration: 1500 * time.Microsecond,
			ClientIP: "10.0.0.1",
		})

		lines := decodeLines(t, &buf)
		if len(lines) != 1 {
			t.Fatalf("status %d: expected 1 line, got %d", tt.status, len(lines))
		}
		line := lines[0]
		if line["level"] != tt.level {
			t.Errorf("status %d: level = %v, want %s", tt.status, line["level"], tt.level)
		}
		if line[FieldRoute] != "/api/summary/" || line[FieldQuery] != "granularity=weekly" {
			t.Errorf("status %d: unexpected fields %v", tt.status, line)
		}
		if line[FieldDuration] != float64(1) || line[FieldClientIP] != "10.0.0.1" {
			t.Errorf("status %d: unexpected fields %v", tt.status, line)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}
