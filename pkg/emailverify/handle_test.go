package emailverify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/client"
)

func postConfirm(t *testing.T, h *Handle, acct account.Account, code string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(ConfirmEmailRequest{VerificationCode: code})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/confirm-email", bytes.NewReader(payload))
	req = req.WithContext(client.WithAuthAccount(req.Context(), client.AuthAccount{
		ID:   acct.ID,
		Role: acct.Role,
	}))
	w := httptest.NewRecorder()
	h.ConfirmEmail(w, req)
	return w
}

func TestConfirmEmailHandler(t *testing.T) {
	t.Run("correct code is 200", func(t *testing.T) {
		f := newVerifyFixture(t)
		h := NewHandle(f.service)
		acct := f.createUnverified(t, "123456")

		w := postConfirm(t, h, acct, "123456")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("expired code is 401", func(t *testing.T) {
		f := newVerifyFixture(t)
		h := NewHandle(f.service)
		acct := f.createUnverified(t, "123456")

		f.now = f.now.Add(6 * time.Minute)
		w := postConfirm(t, h, acct, "123456")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_OR_EXPIRED_CODE")
	})
}
