package emailverify

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/simple-auth/simple-auth/pkg/client"
	"github.com/simple-auth/simple-auth/pkg/errors"
)

type ConfirmEmailRequest struct {
	VerificationCode string `json:"verificationCode"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handle struct {
	service *Service
}

func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

// Routes mounts the email confirmation endpoints. Both require a verified
// full-access token.
func Routes(r chi.Router, h *Handle) {
	r.Post("/confirm-email", h.ConfirmEmail)
	r.Post("/resend-verification", h.ResendVerification)
}

// ConfirmEmail handles POST /confirm-email
func (h *Handle) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	var req ConfirmEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.VerificationCode == "" {
		errors.RenderError(w, r, errors.InvalidInput("verificationCode", "verification code is required"))
		return
	}

	if err := h.service.Confirm(r.Context(), authAccount.ID, req.VerificationCode); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Email verified"})
}

// ResendVerification handles POST /resend-verification
func (h *Handle) ResendVerification(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Regenerate(r.Context(), authAccount.ID); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Verification email sent"})
}
