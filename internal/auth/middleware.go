package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (core.User, error)
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userContextKey).(core.User)
	return u, ok
}

// Middleware requires a valid bearer token and stores the user in the
// request context. WebSocket upgrades may pass the token as ?token=.
func Middleware(issuer *TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "No authorization token provided")
				return
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected access token",
					log.FieldErrorType, log.ErrorTypeAuth,
					log.FieldError, err.Error())
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.Subject)
			if errors.Is(err, core.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Authentication failed")
				return
			}

			logger := log.FromContext(r.Context()).With(log.FieldOwnerID, user.ID)
			ctx := log.NewContext(WithUser(r.Context(), user), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
