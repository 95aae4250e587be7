package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default tagged
// with the "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Access describes one finished HTTP request.
type Access struct {
	Route    string
	Status   int
	Duration time.Duration
	ClientIP string
}

// LogAccess writes the access line for r. Client errors log at warn and
// server errors at error.
func (l *Logger) LogAccess(ctx context.Context, r *http.Request, a Access) {
	level := slog.LevelInfo
	switch {
	case a.Status >= 500:
		level = slog.LevelError
	case a.Status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(a.Status, a.Duration.Milliseconds(), a.Status < 400).
		WithClientIP(a.ClientIP).
		WithComponent(ComponentHTTP)
	fields[FieldRoute] = a.Route

	l.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
