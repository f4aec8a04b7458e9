package audit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/client"
)

func TestHandler(t *testing.T) {
	newAudited := func() (*bytes.Buffer, http.Handler) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		handler := NewMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		return &buf, handler
	}

	t.Run("authenticated request is recorded", func(t *testing.T) {
		buf, handler := newAudited()

		accountID := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
		req = req.WithContext(client.WithAuthAccount(req.Context(), client.AuthAccount{
			ID:   accountID,
			Role: account.RoleUser,
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, buf.String(), "channel=audit")
		assert.Contains(t, buf.String(), accountID.String())
		assert.Contains(t, buf.String(), "/profile/me")
	})

	t.Run("anonymous request passes through unlogged", func(t *testing.T) {
		buf, handler := newAudited()

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, buf.String())
	})
}
