// Package memory is an in-process Store for tests and throwaway deployments.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"spendlens/internal/core"
	"spendlens/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]core.User
	emails   map[string]string
	expenses map[string]core.Expense
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		emails:   make(map[string]string),
		expenses: make(map[string]core.Expense),
	}
}

// SeedFromFile loads a JSON array of expenses for ownerID. A missing file is
// not an error.
func (s *Store) SeedFromFile(path, ownerID string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	items, err := core.DecodeExpenses(data)
	if err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range items {
		e.OwnerID = ownerID
		s.expenses[e.ID] = e
	}
	return len(items), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; ok {
		return core.Expense{}, fmt.Errorf("expense %s already exists", e.ID)
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, ownerID string, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.OwnerID == ownerID && f.Matches(e) {
			out = append(out, e)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, e.ID)
	}
	cur.Amount = e.Amount
	cur.Category = e.Category
	cur.Description = e.Description
	cur.Date = e.Date
	cur.UpdatedAt = e.UpdatedAt
	s.expenses[e.ID] = cur
	return cur, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return core.User{}, fmt.Errorf("create user %s: %w", u.Email, core.ErrEmailTaken)
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.Lock()
	id, ok := s.emails[email]
	s.mu.Unlock()
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) UpdateUserTOTP(_ context.Context, id, secret string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = enabled
	s.users[id] = u
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
