package login

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
)

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Token     string           `json:"token,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	Account   *account.Account `json:"account,omitempty"`

	TwoFactorRequired bool   `json:"two_factor_required,omitempty"`
	TempToken         string `json:"temp_token,omitempty"`

	TwoFactorSetupRequired bool `json:"two_factor_setup_required,omitempty"`
}

type VerifyTwoFactorLoginRequest struct {
	TempToken string `json:"temp_token,omitempty"`
	Passcode  string `json:"passcode"`
}

type PasswordResetInitRequest struct {
	Email string `json:"email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handle struct {
	service    *Service
	jwtService *tokengenerator.JwtService
}

func NewHandle(service *Service, jwtService *tokengenerator.JwtService) *Handle {
	return &Handle{
		service:    service,
		jwtService: jwtService,
	}
}

// Routes mounts the sign-in and password reset endpoints.
func Routes(r chi.Router, h *Handle) {
	r.Post("/sign-in", h.SignIn)
	r.Post("/2fa/verify-login", h.VerifyTwoFactorLogin)
	r.Post("/request-password-reset", h.RequestPasswordReset)
	r.Post("/reset-password", h.ResetPassword)
}

// SignIn handles POST /sign-in
func (h *Handle) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Email == "" || req.Password == "" {
		errors.RenderError(w, r, errors.InvalidInput("credentials", "email and password are required"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errors.RenderError(w, r, err)
		return
	}

	if result.RequiresTwoFA {
		h.jwtService.SetTempTokenCookie(w, result.TempToken, result.TempExpiresAt)
		render.Status(r, http.StatusOK)
		render.JSON(w, r, SignInResponse{
			TwoFactorRequired: true,
			TempToken:         result.TempToken,
			ExpiresAt:         &result.TempExpiresAt,
		})
		return
	}

	h.jwtService.SetAccessTokenCookie(w, result.AccessToken, result.AccessExpiresAt)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, SignInResponse{
		Token:                  result.AccessToken,
		ExpiresAt:              &result.AccessExpiresAt,
		Account:                &result.Account,
		TwoFactorSetupRequired: result.TwoFASetupRequired,
	})
}

// VerifyTwoFactorLogin handles POST /2fa/verify-login. The temporary token
// comes from the bearer header, the temp_token cookie, or the request body.
func (h *Handle) VerifyTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Passcode == "" {
		errors.RenderError(w, r, errors.InvalidInput("passcode", "passcode is required"))
		return
	}

	tempToken := jwtauth.TokenFromHeader(r)
	if tempToken == "" {
		if cookie, err := r.Cookie(tokengenerator.TEMP_TOKEN_NAME); err == nil {
			tempToken = cookie.Value
		}
	}
	if tempToken == "" {
		tempToken = req.TempToken
	}
	if tempToken == "" {
		errors.RenderError(w, r, errors.Unauthorized("temporary token is required"))
		return
	}

	result, err := h.service.CompleteTwoFactorLogin(r.Context(), tempToken, req.Passcode)
	if err != nil {
		errors.RenderError(w, r, err)
		return
	}

	h.jwtService.ClearTokenCookies(w)
	h.jwtService.SetAccessTokenCookie(w, result.AccessToken, result.AccessExpiresAt)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, SignInResponse{
		Token:     result.AccessToken,
		ExpiresAt: &result.AccessExpiresAt,
		Account:   &result.Account,
	})
}

// RequestPasswordReset handles POST /request-password-reset. The response is
// the same whether or not the email has an account.
func (h *Handle) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Email == "" {
		errors.RenderError(w, r, errors.InvalidInput("email", "email is required"))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "If the email exists, reset instructions have been sent"})
}

// ResetPassword handles POST /reset-password
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Token == "" {
		errors.RenderError(w, r, errors.InvalidInput("token", "reset code is required"))
		return
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		errors.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password has been reset"})
}
