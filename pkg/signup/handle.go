package signup

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
)

type SignUpRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone,omitempty"`
	Country      string `json:"country,omitempty"`
	AgreeTerms   bool   `json:"agree_terms"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type SignUpResponse struct {
	Account   account.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
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

// Routes mounts the registration endpoint.
func Routes(r chi.Router, h *Handle) {
	r.Post("/sign-up", h.SignUp)
}

// SignUp handles POST /sign-up
func (h *Handle) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed JSON"))
		return
	}

	params := RegisterParams{}
	if err := copier.Copy(&params, req); err != nil {
		errors.RenderError(w, r, errors.InvalidInput("body", "malformed request"))
		return
	}

	result, err := h.service.Register(r.Context(), params)
	if err != nil {
		errors.RenderError(w, r, err)
		return
	}

	h.jwtService.SetAccessTokenCookie(w, result.Token, result.ExpiresAt)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SignUpResponse{
		Account:   result.Account,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}
