// Package worker mirrors expense events into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendlens/internal/aggregate"
	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/metrics"
	"spendlens/internal/services"
	"spendlens/internal/sheets"
	"spendlens/internal/storage"
)

// Summarizer computes the views written to the summary tab.
type Summarizer interface {
	Summarize(ctx context.Context, ownerID string, req services.SummaryRequest) (aggregate.Summary, error)
}

// EventSource delivers expense events until ctx ends.
type EventSource interface {
	ConsumeExpenseEvents(ctx context.Context, handler amqp.EventHandler) error
}

// SyncWorker applies expense events to a sheets.Mirror. Each event is
// resolved against the store, so replays and out-of-order deliveries converge
// on the current state.
type SyncWorker struct {
	expenses  storage.ExpenseStore
	mirror    sheets.Mirror
	summaries Summarizer
	logger    *log.Logger
}

func NewSyncWorker(expenses storage.ExpenseStore, mirror sheets.Mirror, summaries Summarizer, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		expenses:  expenses,
		mirror:    mirror,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events from src until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, src EventSource) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := src.ConsumeExpenseEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent processes a single expense event.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	start := time.Now()
	err := w.handle(ctx, ev)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("error").Inc()
		return err
	}
	metrics.EventsProcessed.WithLabelValues("ok").Inc()

	w.logger.InfoContext(ctx, "Processed expense event",
		"type", ev.Type,
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldOwnerID, ev.OwnerID,
		"version", ev.Version,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *SyncWorker) handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	switch ev.Type {
	case amqp.EventExpenseDeleted:
		if err := w.mirror.RemoveExpense(ctx, ev.OwnerID, ev.ExpenseID); err != nil {
			return fmt.Errorf("remove expense row: %w", err)
		}
	case amqp.EventExpenseCreated, amqp.EventExpenseUpdated:
		e, err := w.expenses.GetExpense(ctx, ev.OwnerID, ev.ExpenseID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			// deleted after this event was published; its own event follows
			if err := w.mirror.RemoveExpense(ctx, ev.OwnerID, ev.ExpenseID); err != nil {
				return fmt.Errorf("remove expense row: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load expense: %w", err)
		default:
			if err := w.mirror.UpsertExpense(ctx, e); err != nil {
				return fmt.Errorf("upsert expense row: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	return w.writeSummary(ctx, ev.OwnerID)
}

// ResyncOwner rewrites every row and the summary of ownerID. It recovers a
// mirror that missed events while the worker was down.
func (w *SyncWorker) ResyncOwner(ctx context.Context, ownerID string) (int, error) {
	records, err := w.expenses.ListExpenses(ctx, ownerID, core.ExpenseFilter{})
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	synced := 0
	for _, e := range records {
		if err := w.mirror.UpsertExpense(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense during resync",
				log.FieldExpenseID, e.ID,
				log.FieldError, err.Error())
			continue
		}
		synced++
	}

	if err := w.writeSummary(ctx, ownerID); err != nil {
		return synced, err
	}

	w.logger.InfoContext(ctx, "Resync completed",
		log.FieldOwnerID, ownerID,
		"total", len(records),
		"synced", synced,
		"errors", len(records)-synced)
	return synced, nil
}

func (w *SyncWorker) writeSummary(ctx context.Context, ownerID string) error {
	sum, err := w.summaries.Summarize(ctx, ownerID, services.SummaryRequest{Granularity: aggregate.Monthly})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if err := w.mirror.WriteSummary(ctx, ownerID, sum); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
