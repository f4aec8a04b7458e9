package client

import (
	"log/slog"
	"net/http"

	"github.com/simple-auth/simple-auth/pkg/account"
)

// RequireFullAccess rejects scoped tokens. A 2FA temporary token
// authenticates only the 2FA completion endpoint; everything else requires a
// token without a scope restriction.
// Must be used after AuthAccountMiddleware.
func RequireFullAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authAccount, ok := AuthAccountFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if authAccount.Scope != "" {
			slog.Warn("Scoped token used outside its scope",
				"channel", "security", "auth", authAccount, "scope", authAccount.Scope)
			http.Error(w, "Forbidden: insufficient scope", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole returns a middleware allowing only the listed roles. The role
// claim in the token is trusted here; staleness after a role change is
// accepted for these coarse checks.
// Must be used after AuthAccountMiddleware.
func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authAccount, ok := AuthAccountFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if authAccount.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("Account lacks required role",
				"channel", "security", "auth", authAccount, "requiredRoles", roles)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		})
	}
}

// RequirePremium re-reads the account record and allows only premium
// accounts. The stored record decides, not token claims; a revoked premium
// flag takes effect before the token expires.
// Must be used after AuthAccountMiddleware.
func RequirePremium(repo account.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authAccount, ok := AuthAccountFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			acct, err := repo.FindByID(r.Context(), authAccount.ID)
			if err != nil {
				slog.Warn("Premium gate could not load account", "auth", authAccount, "err", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !acct.Premium {
				http.Error(w, "Forbidden: premium required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
