package memory

import (
	"context"
	"testing"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
)

func TestMirrorUpsertAndRemove(t *testing.T) {
	m := New()
	ctx := context.Background()

	for _, e := range []core.Expense{
		{ID: "b", OwnerID: "alice"},
		{ID: "a", OwnerID: "alice"},
		{ID: "c", OwnerID: "bob"},
	} {
		if err := m.UpsertExpense(ctx, e); err != nil {
			t.Fatalf("upsert %s: %v", e.ID, err)
		}
	}

	rows := m.Rows("alice")
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "b" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := m.UpsertExpense(ctx, core.Expense{ID: "a", OwnerID: "alice", Description: "edited"}); err != nil {
		t.Fatal(err)
	}
	if got := m.Rows("alice")[0].Description; got != "edited" {
		t.Fatalf("upsert should replace, got description %q", got)
	}

	if err := m.RemoveExpense(ctx, "alice", "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveExpense(ctx, "alice", "a"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if len(m.Rows("alice")) != 1 {
		t.Fatalf("expected one row left")
	}
}

func TestMirrorSummary(t *testing.T) {
	m := New()
	if _, ok := m.Summary("alice"); ok {
		t.Fatal("no summary expected before the first write")
	}
	if err := m.WriteSummary(context.Background(), "alice", aggregate.Summary{Count: 3}); err != nil {
		t.Fatal(err)
	}
	sum, ok := m.Summary("alice")
	if !ok || sum.Count != 3 {
		t.Fatalf("unexpected summary: %+v ok=%v", sum, ok)
	}
}
