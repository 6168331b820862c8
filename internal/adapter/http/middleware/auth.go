package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/domain"
)

// Authenticator turns a bearer token into a principal.
type Authenticator interface {
	Authenticate(token string) (*domain.Principal, error)
}

// Trusted header names used when token auth is disabled.
const (
	AccountIDHeader = "X-Account-ID"
	RoleHeader      = "X-Account-Role"
)

// AuthMiddleware creates an authentication middleware. Delegation tokens
// yield a principal acting as the delegated account.
func AuthMiddleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
				return
			}

			p, err := authn.Authenticate(parts[1])
			if err != nil {
				message := "invalid token"
				if errors.Is(err, domain.ErrExpiredToken) {
					message = "token has expired"
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", message)
				return
			}

			annotateLogger(r, p)
			next.ServeHTTP(w, r.WithContext(domain.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// TrustedHeaders builds the principal from request headers. It is only
// mounted when token auth is disabled, for local development behind a
// trusted proxy.
func TrustedHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get(AccountIDHeader)
		if accountID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing "+AccountIDHeader+" header")
			return
		}

		role := domain.Role(r.Header.Get(RoleHeader))
		if !role.IsValid() {
			role = domain.RoleCustomer
		}

		p := &domain.Principal{AccountID: accountID, Role: role}
		annotateLogger(r, p)
		next.ServeHTTP(w, r.WithContext(domain.ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin rejects callers without admin rights. Delegated principals
// are rejected too: delegation grants customer rights only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := domain.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// annotateLogger adds the caller to the request logger.
func annotateLogger(r *http.Request, p *domain.Principal) {
	zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		c = c.Str("account_id", p.AccountID)
		if p.IsDelegated() {
			c = c.Str("on_behalf_of_admin", p.Delegation.OnBehalfOfAdmin)
		}
		return c
	})
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{Error: reason, Message: message})
}
