package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordingNotifier struct {
	actions []string
}

func (n *recordingNotifier) NotifyExpenseChange(_, _, action string) {
	n.actions = append(n.actions, action)
}

type recordingInvalidator struct {
	owners []string
}

func (i *recordingInvalidator) InvalidateOwner(ownerID string) {
	i.owners = append(i.owners, ownerID)
}

func testLogger() *log.Logger {
	return log.New(log.Config{Writer: io.Discard})
}

func input(amount string, cat core.Category, date time.Time) ExpenseInput {
	return ExpenseInput{
		Amount:      decimal.RequireFromString(amount),
		Category:    cat,
		Description: "  lunch  ",
		Date:        date,
	}
}

func TestExpenseService_CreateExpense(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	inv := &recordingInvalidator{}
	svc := NewExpenseService(memory.New(), testLogger(),
		WithEventPublisher(pub), WithChangeNotifier(notifier), WithInvalidator(inv))

	date := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	e, err := svc.CreateExpense(context.Background(), "owner-1", input("12.345", core.CategoryFood, date))
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "owner-1", e.OwnerID)
	assert.Equal(t, "12.35", e.Amount.StringFixed(2))
	assert.Equal(t, "lunch", e.Description)
	assert.False(t, e.CreatedAt.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventExpenseCreated, pub.events[0].Type)
	assert.Equal(t, e.ID, pub.events[0].ExpenseID)
	assert.Equal(t, []string{"created"}, notifier.actions)
	assert.Equal(t, []string{"owner-1"}, inv.owners)
}

func TestExpenseService_CreateExpense_Validation(t *testing.T) {
	svc := NewExpenseService(memory.New(), testLogger())
	date := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name  string
		owner string
		in    ExpenseInput
		want  error
	}{
		{"negative amount", "o", input("-1", core.CategoryFood, date), core.ErrInvalidAmount},
		{"unknown category", "o", input("1", core.Category("Pets"), date), core.ErrInvalidCategory},
		{"missing date", "o", input("1", core.CategoryFood, time.Time{}), core.ErrMissingDate},
		{"missing owner", "", input("1", core.CategoryFood, date), core.ErrMissingOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, tt.owner, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	zero, err := svc.CreateExpense(ctx, "o", input("0", core.CategoryOther, date))
	require.NoError(t, err)
	assert.True(t, zero.Amount.IsZero())
}

func TestExpenseService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("connection refused")}
	svc := NewExpenseService(memory.New(), testLogger(), WithEventPublisher(pub))

	_, err := svc.CreateExpense(context.Background(), "o",
		input("5", core.CategoryFood, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewExpenseService(memory.New(), testLogger(), WithEventPublisher(pub))
	ctx := context.Background()
	date := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	e, err := svc.CreateExpense(ctx, "owner-1", input("10", core.CategoryFood, date))
	require.NoError(t, err)

	updated, err := svc.UpdateExpense(ctx, "owner-1", e.ID, input("20", core.CategoryHousing, date))
	require.NoError(t, err)
	assert.Equal(t, "20.00", updated.Amount.StringFixed(2))
	assert.Equal(t, core.CategoryHousing, updated.Category)

	_, err = svc.UpdateExpense(ctx, "owner-2", e.ID, input("20", core.CategoryHousing, date))
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteExpense(ctx, "owner-2", e.ID), core.ErrNotFound)
	require.NoError(t, svc.DeleteExpense(ctx, "owner-1", e.ID))

	_, err = svc.GetExpense(ctx, "owner-1", e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.EventExpenseUpdated, pub.events[1].Type)
	assert.Equal(t, amqp.EventExpenseDeleted, pub.events[2].Type)
	assert.GreaterOrEqual(t, pub.events[2].Version, pub.events[0].Version)
}

func TestExpenseService_ListExpenses_RejectsUnknownCategory(t *testing.T) {
	svc := NewExpenseService(memory.New(), testLogger())
	_, err := svc.ListExpenses(context.Background(), "o", core.ExpenseFilter{Category: "Pets"})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
}
