// Package memory is an in-process spreadsheet mirror used by the worker's
// dry-run mode and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
	"spendlens/internal/sheets"
)

type Mirror struct {
	mu        sync.Mutex
	rows      map[string]core.Expense
	summaries map[string]aggregate.Summary
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{
		rows:      make(map[string]core.Expense),
		summaries: make(map[string]aggregate.Summary),
	}
}

func (m *Mirror) UpsertExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.ID] = e
	return nil
}

func (m *Mirror) RemoveExpense(_ context.Context, _, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *Mirror) WriteSummary(_ context.Context, ownerID string, sum aggregate.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[ownerID] = sum
	return nil
}

// Rows returns the mirrored expenses of ownerID ordered by ID.
func (m *Mirror) Rows(ownerID string) []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range m.rows {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary returns the last summary written for ownerID.
func (m *Mirror) Summary(ownerID string) (aggregate.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, ok := m.summaries[ownerID]
	return sum, ok
}
