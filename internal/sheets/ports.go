// Package sheets defines the outbound ports of the spreadsheet mirror.
package sheets

import (
	"context"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps one row per expense, keyed by expense ID.
	ExpenseMirror interface {
		UpsertExpense(ctx context.Context, e core.Expense) error
		// RemoveExpense is a no-op when the row does not exist.
		RemoveExpense(ctx context.Context, ownerID, id string) error
	}

	// SummaryWriter replaces an owner's summary tab.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, ownerID string, sum aggregate.Summary) error
	}

	// Mirror is everything the sync worker writes to.
	Mirror interface {
		ExpenseMirror
		SummaryWriter
	}
)
