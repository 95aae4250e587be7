package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

func TestMemoryStoreOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := New()

	e := core.Expense{
		ID:       "e1",
		OwnerID:  "alice",
		Amount:   decimal.NewFromInt(3),
		Category: core.CategoryFood,
		Date:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := s.CreateExpense(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateExpense(ctx, e); err == nil {
		t.Fatal("expected duplicate id error")
	}

	if _, err := s.GetExpense(ctx, "bob", "e1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "bob", "e1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting for other owner, got %v", err)
	}

	e.Description = "updated"
	got, err := s.UpdateExpense(ctx, e)
	if err != nil || got.Description != "updated" {
		t.Fatalf("unexpected update: %+v err=%v", got, err)
	}
	if err := s.DeleteExpense(ctx, "alice", "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := s.ListExpenses(ctx, "alice", core.ExpenseFilter{}); len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, day := range []int{3, 1, 2} {
		_, err := s.CreateExpense(ctx, core.Expense{
			ID:       string(rune('a' + i)),
			OwnerID:  "o",
			Category: core.CategoryFood,
			Date:     time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, err := s.ListExpenses(ctx, "o", core.ExpenseFilter{})
	if err != nil || len(list) != 3 {
		t.Fatalf("unexpected list: %v err=%v", list, err)
	}
	for i, want := range []int{3, 2, 1} {
		if list[i].Date.Day() != want {
			t.Fatalf("position %d: expected day %d, got %d", i, want, list[i].Date.Day())
		}
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := core.User{ID: "u1", Email: "a@example.com", Name: "A"}
	if _, err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := s.UpdateUserTOTP(ctx, "u1", "S", true); err != nil {
		t.Fatalf("totp: %v", err)
	}
	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil || !got.TOTPEnabled || got.TOTPSecret != "S" {
		t.Fatalf("unexpected user: %+v err=%v", got, err)
	}
}

func TestSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	s := New()

	// Missing file -> nothing seeded
	n, err := s.SeedFromFile(filepath.Join(dir, "missing.json"), "o")
	if err != nil || n != 0 {
		t.Fatalf("expected no-op for missing file: n=%d err=%v", n, err)
	}

	path := filepath.Join(dir, "seed.json")
	content := `[{"id":"s1","amount":12.5,"category":"Food","description":"x","date":"2025-01-02T10:00:00Z"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err = s.SeedFromFile(path, "o")
	if err != nil || n != 1 {
		t.Fatalf("unexpected seed: n=%d err=%v", n, err)
	}
	got, err := s.GetExpense(context.Background(), "o", "s1")
	if err != nil || got.Amount.String() != "12.5" {
		t.Fatalf("unexpected seeded expense: %+v err=%v", got, err)
	}
}

func TestSeedFromFileRejectsInvalidRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	content := `[
		{"id":"s1","amount":"5","category":"Food","date":"2025-01-02T10:00:00Z"},
		{"id":"s2","amount":"-500","category":"Food","date":"2025-01-02T11:00:00Z"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New()
	n, err := s.SeedFromFile(path, "o")
	if !errors.Is(err, core.ErrInvalidAmount) || n != 0 {
		t.Fatalf("expected ErrInvalidAmount and nothing seeded, got n=%d err=%v", n, err)
	}
	items, _ := s.ListExpenses(context.Background(), "o", core.ExpenseFilter{})
	if len(items) != 0 {
		t.Fatalf("a rejected file must seed nothing, got %d records", len(items))
	}
}
