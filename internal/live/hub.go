// Package live pushes change notifications to an owner's open WebSocket
// sessions.
package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olahol/melody"

	"spendlens/internal/log"
	"spendlens/internal/metrics"
)

const ownerKey = "owner_id"

// MessageExpensesChanged is the type of every push sent after a mutation.
const MessageExpensesChanged = "expenses.changed"

// Change is the payload pushed to clients. Clients refetch the views they
// display.
type Change struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expenseId"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// Hub tracks sessions per owner.
type Hub struct {
	m      *melody.Melody
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &Hub{m: m, logger: logger.WithComponent(log.ComponentLive)}

	m.HandleConnect(func(s *melody.Session) {
		metrics.LiveSessions.Inc()
		owner, _ := s.Get(ownerKey)
		h.logger.Debug("Client connected", log.FieldOwnerID, owner)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		metrics.LiveSessions.Dec()
		owner, _ := s.Get(ownerKey)
		h.logger.Debug("Client disconnected", log.FieldOwnerID, owner)
	})
	m.HandleError(func(s *melody.Session, err error) {
		h.logger.Warn("WebSocket error", log.FieldError, err.Error())
	})

	return h
}

// Serve upgrades the request and binds the session to ownerID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ownerID string) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]any{ownerKey: ownerID})
}

// NotifyExpenseChange broadcasts a Change to every session of ownerID.
func (h *Hub) NotifyExpenseChange(ownerID, expenseID, action string) {
	msg, err := json.Marshal(Change{
		Type:      MessageExpensesChanged,
		ExpenseID: expenseID,
		Action:    action,
		At:        time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("Failed to encode change", log.FieldError, err.Error())
		return
	}

	err = h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(ownerKey)
		return ok && id == ownerID
	})
	if err != nil && err != melody.ErrClosed {
		h.logger.Warn("Failed to broadcast change",
			log.FieldOwnerID, ownerID,
			log.FieldError, err.Error())
	}
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	return h.m.Len()
}

// Close disconnects every session.
func (h *Hub) Close() error {
	return h.m.Close()
}
