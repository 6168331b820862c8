package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/auth"
)

func capturePrincipal(got **domain.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := domain.PrincipalFromContext(r.Context())
		*got = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 10*time.Minute)

	customerToken, err := jwtManager.Generate("acc-1", domain.RoleCustomer)
	require.NoError(t, err)

	delegatedToken, _, err := jwtManager.Delegate(&domain.Principal{AccountID: "admin-1", Role: domain.RoleAdmin}, "acc-2", 0)
	require.NoError(t, err)

	otherManager := auth.NewJWTManager("other-secret", time.Hour, time.Minute)
	forged, err := otherManager.Generate("acc-1", domain.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name          string
		header        string
		wantStatus    int
		wantAccount   string
		wantDelegated bool
	}{
		{"missing header", "", http.StatusUnauthorized, "", false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "", false},
		{"forged token", "Bearer " + forged, http.StatusUnauthorized, "", false},
		{"customer token", "Bearer " + customerToken, http.StatusNoContent, "acc-1", false},
		{"delegation token", "Bearer " + delegatedToken, http.StatusNoContent, "acc-2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.Principal
			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(jwtManager)(capturePrincipal(&got)).ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantAccount == "" {
				assert.Nil(t, got)
				assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantAccount, got.AccountID)
			assert.Equal(t, tt.wantDelegated, got.IsDelegated())
			if tt.wantDelegated {
				assert.Equal(t, "admin-1", got.Delegation.OnBehalfOfAdmin)
				assert.False(t, got.IsAdmin())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		principal  *domain.Principal
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &domain.Principal{AccountID: "acc-1", Role: domain.RoleCustomer}, http.StatusForbidden},
		{
			"delegated admin",
			&domain.Principal{
				AccountID:  "acc-1",
				Role:       domain.RoleCustomer,
				Delegation: &domain.Delegation{ActingAs: "acc-1", OnBehalfOfAdmin: "admin-1"},
			},
			http.StatusForbidden,
		},
		{"admin", &domain.Principal{AccountID: "admin-1", Role: domain.RoleAdmin}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reconciliation", nil)
			if tt.principal != nil {
				req = req.WithContext(domain.ContextWithPrincipal(req.Context(), tt.principal))
			}
			rr := httptest.NewRecorder()

			RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestTrustedHeaders(t *testing.T) {
	var got *domain.Principal

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set(AccountIDHeader, "acc-7")
	req.Header.Set(RoleHeader, "superuser")
	rr := httptest.NewRecorder()

	TrustedHeaders(capturePrincipal(&got)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "acc-7", got.AccountID)
	assert.Equal(t, domain.RoleCustomer, got.Role, "unknown roles fall back to customer")

	rr = httptest.NewRecorder()
	TrustedHeaders(capturePrincipal(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
