package profile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/client"
	"github.com/simple-auth/simple-auth/pkg/errors"
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PremiumResponse struct {
	Premium bool   `json:"premium"`
	Message string `json:"message"`
}

type Handle struct {
	service *Service
}

func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

// Routes mounts the profile endpoints. The premium route sits behind the
// live-state premium gate; everything else only needs a full-access token.
func Routes(r chi.Router, h *Handle, repo account.Repository) {
	r.Get("/me", h.Me)
	r.Put("/password", h.ChangePassword)
	r.With(client.RequirePremium(repo)).Get("/premium", h.Premium)
}

// Me handles GET /me
func (h *Handle) Me(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	acct, err := h.service.Get(r.Context(), authAccount.ID)
	if err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, acct)
}

// ChangePassword handles PUT /password
func (h *Handle) ChangePassword(w http.ResponseWriter, r *http.Request) {
	authAccount, ok := client.AuthAccountFromContext(r.Context())
	if !ok {
		errors.RenderError(w, r, errors.Unauthorized("authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		errors.RenderError(w, r, errors.InvalidInput("body", "current and new password are required"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), authAccount.ID, req.CurrentPassword, req.NewPassword); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password changed"})
}

// Premium handles GET /premium
func (h *Handle) Premium(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, PremiumResponse{Premium: true, Message: "Premium access granted"})
}
