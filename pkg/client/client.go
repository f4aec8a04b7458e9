// Package client carries the verified token identity through the request
// context and provides the authorization middlewares built on it.
package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/simple-auth/simple-auth/pkg/account"
)

// AuthAccount is the identity extracted from a verified token. Role and
// Scope come from token claims; security-critical checks re-read the store
// instead of trusting them.
type AuthAccount struct {
	ID    uuid.UUID    `json:"id"`
	Role  account.Role `json:"role"`
	Scope string       `json:"scope,omitempty"`
}

func (a AuthAccount) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("accountId", a.ID.String()),
		slog.String("role", string(a.Role)),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "auth context value " + k.name
}

var authAccountKey = &contextKey{"AuthAccount"}

// WithAuthAccount returns a context carrying the verified identity.
func WithAuthAccount(ctx context.Context, a AuthAccount) context.Context {
	return context.WithValue(ctx, authAccountKey, a)
}

// AuthAccountFromContext returns the verified identity placed by
// AuthAccountMiddleware.
func AuthAccountFromContext(ctx context.Context) (AuthAccount, bool) {
	a, ok := ctx.Value(authAccountKey).(AuthAccount)
	return a, ok
}

const accessTokenCookie = "access_token"

// NewAuthenticator builds the shared token verifier. Signature, expiry,
// issuer, and audience are all checked; a token signed with the right secret
// but minted for another service is rejected.
func NewAuthenticator(secret, issuer, audience string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil,
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)
}

// Verifier verifies a token from the Authorization header or the
// access_token cookie and stores the parse result in the context. It does
// not reject; Authenticator middlewares do.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

// TokenFromCookie reads the access token cookie.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AuthAccountMiddleware turns verified claims into an AuthAccount context
// value. Requests without a valid token get 401.
func AuthAccountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		subject, _ := claims["sub"].(string)
		id, err := uuid.Parse(subject)
		if err != nil {
			slog.Warn("Token subject is not a valid account id", "subject", subject)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		authAccount := AuthAccount{ID: id}
		if role, ok := claims["role"].(string); ok {
			authAccount.Role = account.Role(role)
		}
		if scope, ok := claims["scope"].(string); ok {
			authAccount.Scope = scope
		}

		ctx := WithAuthAccount(r.Context(), authAccount)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
