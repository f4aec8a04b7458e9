package twofa

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/simple-auth/simple-auth/pkg/client"
	"github.com/simple-auth/simple-auth/pkg/errors"
)

type VerifyEnrollmentRequest struct {
	Passcode string `json:"passcode"`
}

type DisableRequest struct {
	Password string `json:"password"`
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

// Routes mounts the 2FA enrollment endpoints. All require a verified
// full-access token.
func Routes(r chi.Router, h *Handle) {
	r.Post("/generate", h.Generate)
	r.Post("/verify", h.Verify)
	r.Post("/disable", h.Disable)
}

// Generate handles POST /generate
func (h *Handle) Generate(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	enrollment, err := h.service.GenerateSecret(r.Context(), authAccount.ID)
	if err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, enrollment)
}

// Verify handles POST /verify
func (h *Handle) Verify(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	var req VerifyEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Passcode == "" {
		errors.RenderError(w, r, errors.InvalidInput("passcode", "passcode is required"))
		return
	}

	if err := h.service.VerifyEnrollment(r.Context(), authAccount.ID, req.Passcode); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Two-factor authentication enabled"})
}

// Disable handles POST /disable
func (h *Handle) Disable(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	var req DisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Password == "" {
		errors.RenderError(w, r, errors.InvalidInput("password", "password is required"))
		return
	}

	if err := h.service.Disable(r.Context(), authAccount.ID, req.Password); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Two-factor authentication disabled"})
}
