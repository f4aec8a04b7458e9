// Package audit provides middleware for auditing authenticated requests.
package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/simple-auth/simple-auth/pkg/client"
)

// Event is one audited request.
type Event struct {
	AccountID uuid.UUID
	Role      string
	URI       string
	Method    string
	Timestamp time.Time
}

// Middleware records authenticated requests on the audit log channel.
type Middleware struct {
	logger *slog.Logger
}

// NewMiddleware creates an audit middleware writing to the given logger,
// or the default logger when nil.
func NewMiddleware(logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{logger: logger.With("channel", "audit")}
}

// Handler audits each request carrying a verified account. Requests
// without one pass through unlogged; the security channel covers those.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authAccount, ok := client.AuthAccountFromContext(r.Context()); ok {
			m.record(Event{
				AccountID: authAccount.ID,
				Role:      string(authAccount.Role),
				URI:       r.RequestURI,
				Method:    r.Method,
				Timestamp: time.Now().UTC(),
			})
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) record(event Event) {
	m.logger.Info("request",
		"accountId", event.AccountID,
		"role", event.Role,
		"method", event.Method,
		"uri", event.URI,
		"at", event.Timestamp.Format(time.RFC3339),
	)
}
