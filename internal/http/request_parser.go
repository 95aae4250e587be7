// Package http provides the JSON API server and its handlers.
//
// This file implements parsing and validation of request bodies and query
// strings into service inputs.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
	"spendlens/internal/services"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errInvalidBody     = errors.New("invalid request body")
	errInvalidDate     = errors.New("invalid date (expected YYYY-MM-DD or RFC 3339)")
	errInvalidTimezone = errors.New("invalid timezone")
	errInvalidQuery    = errors.New("invalid query parameter")
)

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", errInvalidBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// expenseRequest is the wire form of an expense write. Amount accepts a
// JSON number or a string such as "12,34".
type expenseRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// ParseExpenseInput decodes and validates an expense body. Date-only values
// are read in loc.
func ParseExpenseInput(w http.ResponseWriter, r *http.Request, loc *time.Location) (services.ExpenseInput, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.ExpenseInput{}, err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	if strings.TrimSpace(req.Date) == "" {
		return services.ExpenseInput{}, core.ErrMissingDate
	}
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return services.ExpenseInput{}, err
	}

	return services.ExpenseInput{
		Amount:      amount,
		Category:    category,
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return core.ParseAmount(s)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return core.NormalizeAmount(d)
}

// parseDate accepts YYYY-MM-DD (midnight in loc) or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, s)
}

// ParseExpenseFilter reads the optional category, from and to parameters.
// A date-only "to" covers the whole day.
func ParseExpenseFilter(query url.Values, loc *time.Location) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	if v := strings.TrimSpace(query.Get("category")); v != "" {
		c, err := core.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := parseDate(v, loc)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := parseDate(v, loc)
		if err != nil {
			return f, err
		}
		if len(v) == len(time.DateOnly) {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.To = t
	}
	return f, nil
}

// ParseSummaryRequest reads granularity, tz and merge_years. Missing values
// leave the service defaults in place.
func ParseSummaryRequest(query url.Values) (services.SummaryRequest, error) {
	var req services.SummaryRequest

	g, err := aggregate.ParseGranularity(query.Get("granularity"))
	if err != nil {
		return req, err
	}
	req.Granularity = g

	if tz := strings.TrimSpace(query.Get("tz")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return req, fmt.Errorf("%w: %q", errInvalidTimezone, tz)
		}
		req.Location = loc
	}

	if v := strings.TrimSpace(query.Get("merge_years")); v != "" {
		merge, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: merge_years must be a boolean", errInvalidQuery)
		}
		req.MergeYears = &merge
	}
	return req, nil
}

// sanitizeInput trims s and drops control characters other than tab and
// line breaks.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
