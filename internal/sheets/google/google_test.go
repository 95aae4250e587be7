package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
	"spendlens/internal/log"
)

// fakeSheets is a tiny in-memory stand-in for the Sheets v4 REST API,
// covering only the calls Client makes.
type fakeSheets struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

var rangeRe = regexp.MustCompile(`^'(.*)'!([A-Z]+)(\d*)`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sid")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "" && r.Method == http.MethodGet:
		sheets := []map[string]any{}
		for title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case path == ":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs[rq.AddSheet.Properties.Title] = nil
			}
		}
		_, _ = io.WriteString(w, `{}`)

	case strings.HasPrefix(path, "/values/"):
		f.values(w, r, strings.TrimPrefix(path, "/values/"))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) values(w http.ResponseWriter, r *http.Request, rng string) {
	op := ""
	if i := strings.LastIndex(rng, ":"); i >= 0 && (strings.HasSuffix(rng, ":append") || strings.HasSuffix(rng, ":clear")) {
		op = rng[i+1:]
		rng = rng[:i]
	}
	m := rangeRe.FindStringSubmatch(rng)
	if m == nil {
		http.Error(w, "bad range "+rng, http.StatusBadRequest)
		return
	}
	tab := m[1]
	start := 1
	if m[3] != "" {
		start, _ = strconv.Atoi(m[3])
	}

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.tabs[tab]})
	case op == "append":
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.tabs[tab] = append(f.tabs[tab], vr.Values...)
		_, _ = io.WriteString(w, `{}`)
	case op == "clear":
		if m[3] == "" {
			f.tabs[tab] = nil
		} else if start <= len(f.tabs[tab]) {
			f.tabs[tab][start-1] = []any{}
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		for i, row := range vr.Values {
			idx := start - 1 + i
			for len(f.tabs[tab]) <= idx {
				f.tabs[tab] = append(f.tabs[tab], []any{})
			}
			f.tabs[tab][idx] = row
		}
		_, _ = io.WriteString(w, `{}`)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	logger := log.New(log.Config{Writer: io.Discard})
	return NewWithService(svc, Options{SpreadsheetID: "sid"}, logger), fake
}

func TestClient_UpsertAndRemove(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	e := core.Expense{
		ID:       "exp-1",
		OwnerID:  "owner-1",
		Amount:   decimal.NewFromInt(10),
		Category: core.CategoryFood,
		Date:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, c.UpsertExpense(ctx, e))
	require.Len(t, fake.tabs["Expenses"], 2, "header plus one row")
	assert.Equal(t, "ID", fake.tabs["Expenses"][0][0])
	assert.Equal(t, "10.00", fake.tabs["Expenses"][1][5])

	e.Amount = decimal.NewFromInt(25)
	require.NoError(t, c.UpsertExpense(ctx, e))
	require.Len(t, fake.tabs["Expenses"], 2, "upsert rewrites in place")
	assert.Equal(t, "25.00", fake.tabs["Expenses"][1][5])

	require.NoError(t, c.RemoveExpense(ctx, "owner-1", "exp-1"))
	assert.Empty(t, fake.tabs["Expenses"][1])

	assert.NoError(t, c.RemoveExpense(ctx, "owner-1", "exp-1"), "removing twice is a no-op")
}

func TestClient_WriteSummary(t *testing.T) {
	c, fake := newTestClient(t)
	sum, err := aggregate.Summarize([]core.Expense{
		{Amount: decimal.NewFromInt(7), Category: core.CategoryOther, Date: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}, aggregate.Options{Now: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Location: time.UTC})
	require.NoError(t, err)

	require.NoError(t, c.WriteSummary(context.Background(), "owner-1234567890", sum))

	rows := fake.tabs["Summary owner-12"]
	require.NotEmpty(t, rows)
	assert.Equal(t, "Total", rows[2][0])
	assert.Equal(t, "7.00", rows[2][1])
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{}, log.New(log.Config{Writer: io.Discard}))
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sid"}, log.New(log.Config{Writer: io.Discard}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}
