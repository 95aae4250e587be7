// Package google mirrors expenses and summaries into a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/aggregate"
	"spendlens/internal/config"
	"spendlens/internal/core"
	"spendlens/internal/log"
	ports "spendlens/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	summarySheet  string
	logger        *log.Logger

	mu        sync.Mutex
	knownTabs map[string]bool
}

var _ ports.Mirror = (*Client)(nil)

// Options configure the client. Exactly one of CredentialsJSON and
// CredentialsFile is needed; GOOGLE_APPLICATION_CREDENTIALS is the fallback.
type Options struct {
	SpreadsheetID   string
	ExpensesSheet   string
	SummarySheet    string
	CredentialsJSON string
	CredentialsFile string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ExpensesSheet:   cfg.GoogleSheetName,
		SummarySheet:    cfg.GoogleSummarySheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}
}

func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, opts, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, opts Options, logger *log.Logger) *Client {
	expenses := strings.TrimSpace(opts.ExpensesSheet)
	if expenses == "" {
		expenses = "Expenses"
	}
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = "Summary"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		expensesSheet: expenses,
		summarySheet:  summary,
		logger:        logger.WithComponent(log.ComponentSheets),
		knownTabs:     make(map[string]bool),
	}
}

func credentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// UpsertExpense rewrites the row of e in place, or appends it.
func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) error {
	if err := c.ensureTab(ctx, c.expensesSheet, expenseHeader); err != nil {
		return err
	}

	row, err := c.rowOf(ctx, e.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}

	if row > 0 {
		rng := a1(c.expensesSheet, fmt.Sprintf("A%d:%s%d", row, expenseLastCol, row))
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Updated expense row", log.FieldExpenseID, e.ID, "row", row)
		return nil
	}

	rng := a1(c.expensesSheet, "A:"+expenseLastCol)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.expensesSheet, err)
	}
	c.logger.DebugContext(ctx, "Appended expense row", log.FieldExpenseID, e.ID)
	return nil
}

// RemoveExpense clears the row of id. Rows are cleared rather than deleted
// so concurrent row numbers stay stable.
func (c *Client) RemoveExpense(ctx context.Context, ownerID, id string) error {
	if err := c.ensureTab(ctx, c.expensesSheet, expenseHeader); err != nil {
		return err
	}
	row, err := c.rowOf(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		c.logger.DebugContext(ctx, "Expense row already absent", log.FieldExpenseID, id)
		return nil
	}

	rng := a1(c.expensesSheet, fmt.Sprintf("A%d:%s%d", row, expenseLastCol, row))
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Cleared expense row",
		log.FieldOwnerID, ownerID,
		log.FieldExpenseID, id,
		"row", row)
	return nil
}

// WriteSummary replaces the owner's summary tab.
func (c *Client) WriteSummary(ctx context.Context, ownerID string, sum aggregate.Summary) error {
	tab := summaryTabName(c.summarySheet, ownerID)
	if err := c.ensureTab(ctx, tab, nil); err != nil {
		return err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(tab, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: summaryRows(sum)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

func (c *Client) rowOf(ctx context.Context, id string) (int, error) {
	rng := a1(c.expensesSheet, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRow(resp.Values, id), nil
}

// ensureTab creates the tab on first use and writes header when given.
func (c *Client) ensureTab(ctx context.Context, name string, header []any) error {
	c.mu.Lock()
	known := c.knownTabs[name]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			exists = true
			break
		}
	}

	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
		if header != nil {
			vr := &gsheet.ValueRange{Values: [][]any{header}}
			_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(name, "A1"), vr).
				ValueInputOption("RAW").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("write header of %s: %w", name, err)
			}
		}
		c.logger.InfoContext(ctx, "Created sheet", "sheet", name)
	}

	c.mu.Lock()
	c.knownTabs[name] = true
	c.mu.Unlock()
	return nil
}

func a1(sheet, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), rng)
}
