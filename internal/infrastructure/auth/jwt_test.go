package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/auth"
)

func TestJWTManagerGenerateAndAuthenticate(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Minute, 0)

	token, err := manager.Generate("acc-123", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	principal, err := manager.Authenticate(token)
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}

	if principal.AccountID != "acc-123" || principal.Role != domain.RoleCustomer || principal.IsDelegated() {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestJWTManagerDelegation(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Hour, 10*time.Minute)
	admin := &domain.Principal{AccountID: "admin-1", Role: domain.RoleAdmin}

	token, delegation, err := manager.Delegate(admin, "acc-9", 2*time.Hour)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if delegation.ActingAs != "acc-9" || delegation.OnBehalfOfAdmin != "admin-1" {
		t.Fatalf("unexpected delegation %+v", delegation)
	}
	if ttl := time.Until(delegation.ExpiresAt); ttl > 10*time.Minute {
		t.Fatalf("expected ttl to be capped at 10m, got %v", ttl)
	}

	principal, err := manager.Authenticate(token)
	if err != nil {
		t.Fatalf("expected delegation token to verify, got %v", err)
	}

	if principal.AccountID != "acc-9" {
		t.Fatalf("expected to act as acc-9, got %s", principal.AccountID)
	}
	if principal.IsAdmin() {
		t.Fatalf("delegated principal must not carry admin rights")
	}
	if !principal.IsDelegated() || principal.Delegation.OnBehalfOfAdmin != "admin-1" {
		t.Fatalf("expected delegation to name the admin, got %+v", principal.Delegation)
	}
	if principal.CanAccess("acc-other") {
		t.Fatalf("delegated principal must only reach the delegated account")
	}
}

func TestJWTManagerDelegationRequiresAdmin(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Hour, 0)

	tests := []struct {
		name     string
		admin    *domain.Principal
		actingAs string
	}{
		{"customer", &domain.Principal{AccountID: "acc-1", Role: domain.RoleCustomer}, "acc-2"},
		{"already delegated", &domain.Principal{
			AccountID:  "acc-2",
			Role:       domain.RoleAdmin,
			Delegation: &domain.Delegation{ActingAs: "acc-2", OnBehalfOfAdmin: "admin-1"},
		}, "acc-3"},
		{"self", &domain.Principal{AccountID: "admin-1", Role: domain.RoleAdmin}, "admin-1"},
		{"no target", &domain.Principal{AccountID: "admin-1", Role: domain.RoleAdmin}, ""},
		{"no principal", nil, "acc-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := manager.Delegate(tt.admin, tt.actingAs, time.Minute); !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute, 0)

	expiredClaims := auth.Claims{
		Role: domain.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "expired",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		},
	}

	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign expired token: %v", err)
	}

	if _, err := manager.Verify(expiredToken); err != domain.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	otherManager := auth.NewJWTManager("other-secret", time.Minute, 0)
	if _, err := otherManager.Verify(expiredToken); err == nil || err == domain.ErrExpiredToken {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	if _, err := manager.Verify("not-a-token"); err == nil {
		t.Fatalf("expected failure for malformed token")
	}
}

func TestJWTManagerRejectsForgedDelegation(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute, 0)

	forged := auth.Claims{
		Role:     domain.RoleCustomer,
		ActingAs: "victim",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManagerRequiresExpiry(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute, 0)

	claims := auth.Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
