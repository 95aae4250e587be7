package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendlens/internal/auth"
	"spendlens/internal/core"
	"spendlens/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Payload(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{"categories": core.Categories()}).Write(w)
}

// handleLive upgrades to a WebSocket that receives the owner's change pushes.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if s.deps.Hub == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Live updates unavailable").Write(w)
		return
	}
	if err := s.deps.Hub.Serve(w, r, user.ID); err != nil {
		s.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			log.FieldOwnerID, user.ID,
			log.FieldError, err.Error())
	}
}

// currentUser returns the authenticated user, writing a 401 when the auth
// middleware did not run.
func currentUser(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		UnauthorizedError("No authorization token provided").Write(w)
		return core.User{}, false
	}
	return user, true
}

func (s *Server) location() *time.Location {
	if s.deps.Location == nil {
		return time.UTC
	}
	return s.deps.Location
}

func isClientGone(err error) bool {
	return errors.Is(err, context.Canceled)
}
