package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/metrics"
	"spendlens/internal/storage"
)

// EventPublisher announces expense mutations to other processes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ChangeNotifier pushes mutations to the owner's open sessions.
type ChangeNotifier interface {
	NotifyExpenseChange(ownerID, expenseID, action string)
}

// Invalidator drops derived data for an owner.
type Invalidator interface {
	InvalidateOwner(ownerID string)
}

// ExpenseInput carries the mutable fields of an expense.
type ExpenseInput struct {
	Amount      decimal.Decimal
	Category    core.Category
	Description string
	Date        time.Time
}

// ExpenseService validates and persists owner-scoped expenses. After every
// write it invalidates cached summaries, notifies live sessions and
// publishes an event. Only the store write can fail a request.
type ExpenseService struct {
	store       storage.ExpenseStore
	publisher   EventPublisher
	notifier    ChangeNotifier
	invalidator Invalidator
	logger      *log.Logger
	now         func() time.Time
}

type ExpenseOption func(*ExpenseService)

func WithEventPublisher(p EventPublisher) ExpenseOption {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithChangeNotifier(n ChangeNotifier) ExpenseOption {
	return func(s *ExpenseService) { s.notifier = n }
}

func WithInvalidator(i Invalidator) ExpenseOption {
	return func(s *ExpenseService) { s.invalidator = i }
}

func NewExpenseService(store storage.ExpenseStore, logger *log.Logger, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		store:  store,
		logger: logger.WithComponent(log.ComponentExpense),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) CreateExpense(ctx context.Context, ownerID string, in ExpenseInput) (core.Expense, error) {
	if ownerID == "" {
		return core.Expense{}, core.ErrMissingOwner
	}
	now := s.now().UTC()
	e := core.Expense{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := apply(&e, in); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.afterWrite(ctx, saved, amqp.EventExpenseCreated, saved.UpdatedAt)
	return saved, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.Expense, error) {
	if f.Category != "" {
		if err := f.Category.Validate(); err != nil {
			return nil, err
		}
	}
	return s.store.ListExpenses(ctx, ownerID, f)
}

// UpdateExpense replaces the mutable fields of an existing expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, ownerID, id string, in ExpenseInput) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := apply(&e, in); err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = s.now().UTC()

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.afterWrite(ctx, saved, amqp.EventExpenseUpdated, saved.UpdatedAt)
	return saved, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}

	s.afterWrite(ctx, core.Expense{ID: id, OwnerID: ownerID}, amqp.EventExpenseDeleted, s.now())
	return nil
}

func apply(e *core.Expense, in ExpenseInput) error {
	amount, err := core.NormalizeAmount(in.Amount)
	if err != nil {
		return err
	}
	e.Amount = amount
	e.Category = in.Category
	e.Description = strings.TrimSpace(in.Description)
	e.Date = in.Date
	return e.Validate()
}

func (s *ExpenseService) afterWrite(ctx context.Context, e core.Expense, eventType amqp.EventType, at time.Time) {
	action := strings.TrimPrefix(string(eventType), "expense.")
	metrics.ExpenseMutations.WithLabelValues(action).Inc()

	s.logger.InfoContext(ctx, "Expense "+action,
		log.NewFields().
			WithOperation(action).
			WithOwner(e.OwnerID).
			WithExpense(e.ID, e.Amount, e.Category.String()).
			ToSlice()...)

	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(e.OwnerID)
	}
	if s.notifier != nil {
		s.notifier.NotifyExpenseChange(e.OwnerID, e.ID, action)
	}
	s.publish(ctx, amqp.NewExpenseEvent(eventType, e.ID, e.OwnerID, at.UnixNano()))
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		// the write already succeeded; the mirror catches up on the next event
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, ev.ExpenseID,
			log.FieldError, err.Error())
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
