package storage

import (
	"context"

	"spendlens/internal/core"
)

// Ports implemented by every backend.
type (
	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// GetExpense returns core.ErrNotFound when id does not exist for ownerID.
		GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
		// ListExpenses returns the owner's expenses, most recent first.
		ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID, id string) error
	}

	UserStore interface {
		// CreateUser returns core.ErrEmailTaken for a duplicate email.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUserTOTP(ctx context.Context, id, secret string, enabled bool) error
	}

	// Store is the full persistence surface used by the services.
	Store interface {
		ExpenseStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)
