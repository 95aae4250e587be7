package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the mutation an ExpenseEvent reports.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	}
	return false
}

// ExpenseEvent is a lightweight notification that an expense changed.
// Consumers fetch the current record themselves; Version orders events for
// the same expense.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ExpenseID string    `json:"expenseId"`
	OwnerID   string    `json:"ownerId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent stamps an event with the current time.
func NewExpenseEvent(eventType EventType, expenseID, ownerID string, version int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      eventType,
		ExpenseID: expenseID,
		OwnerID:   ownerID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ExpenseID == "" || ev.OwnerID == "" {
		return nil, fmt.Errorf("event missing expense or owner id")
	}
	return &ev, nil
}
