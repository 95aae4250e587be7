package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/aggregate"
	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/services"
	sheetsmem "spendlens/internal/sheets/memory"
	"spendlens/internal/storage/memory"
)

func setup(t *testing.T) (*SyncWorker, *memory.Store, *sheetsmem.Mirror) {
	t.Helper()
	logger := log.New(log.Config{Writer: io.Discard})
	store := memory.New()
	mirror := sheetsmem.New()
	summaries := services.NewSummaryService(store, nil, time.UTC, false, logger)
	return NewSyncWorker(store, mirror, summaries, logger), store, mirror
}

func addExpense(t *testing.T, store *memory.Store, id, owner string, amount int64) core.Expense {
	t.Helper()
	e, err := store.CreateExpense(context.Background(), core.Expense{
		ID:       id,
		OwnerID:  owner,
		Amount:   decimal.NewFromInt(amount),
		Category: core.CategoryFood,
		Date:     time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	return e
}

func TestHandleEvent_CreateUpdateDelete(t *testing.T) {
	w, store, mirror := setup(t)
	ctx := context.Background()

	e := addExpense(t, store, "exp-1", "alice", 10)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, e.ID, "alice", 1)))

	rows := mirror.Rows("alice")
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(rows[0].Amount))

	sum, ok := mirror.Summary("alice")
	require.True(t, ok)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, aggregate.Monthly, sum.Granularity)

	e.Amount = decimal.NewFromInt(15)
	_, err := store.UpdateExpense(ctx, e)
	require.NoError(t, err)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseUpdated, e.ID, "alice", 2)))
	assert.True(t, decimal.NewFromInt(15).Equal(mirror.Rows("alice")[0].Amount))

	require.NoError(t, store.DeleteExpense(ctx, "alice", e.ID))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseDeleted, e.ID, "alice", 3)))
	assert.Empty(t, mirror.Rows("alice"))

	sum, _ = mirror.Summary("alice")
	assert.Equal(t, 0, sum.Count)
}

func TestHandleEvent_CreatedButAlreadyDeleted(t *testing.T) {
	w, _, mirror := setup(t)
	ctx := context.Background()
	require.NoError(t, mirror.UpsertExpense(ctx, core.Expense{ID: "gone", OwnerID: "alice"}))

	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, "gone", "alice", 1)))
	assert.Empty(t, mirror.Rows("alice"))
}

func TestHandleEvent_UnknownType(t *testing.T) {
	w, _, _ := setup(t)
	err := w.HandleEvent(context.Background(), &amqp.ExpenseEvent{Type: "expense.archived", ExpenseID: "x", OwnerID: "y"})
	assert.Error(t, err)
}

func TestResyncOwner(t *testing.T) {
	w, store, mirror := setup(t)
	addExpense(t, store, "a", "alice", 1)
	addExpense(t, store, "b", "alice", 2)
	addExpense(t, store, "c", "bob", 3)

	n, err := w.ResyncOwner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, mirror.Rows("alice"), 2)
	assert.Empty(t, mirror.Rows("bob"))
}

type stubSource struct{ err error }

func (s stubSource) ConsumeExpenseEvents(ctx context.Context, _ amqp.EventHandler) error {
	<-ctx.Done()
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, w.Run(ctx, stubSource{}))
	assert.Error(t, w.Run(ctx, stubSource{err: errors.New("channel closed")}))
}
