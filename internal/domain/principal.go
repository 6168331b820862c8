package domain

import (
	"context"
	"errors"
	"time"
)

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Role represents an access level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Delegation lets an administrator act as a customer account. It is always
// explicit and audited; the acting account is never silently swapped.
type Delegation struct {
	ActingAs        string
	OnBehalfOfAdmin string
	ExpiresAt       time.Time
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	AccountID  string
	Role       Role
	Delegation *Delegation
}

// IsAdmin reports whether the principal holds admin rights in its own name.
// A delegated principal acts with the customer's rights only.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin && p.Delegation == nil
}

// IsDelegated reports whether an admin is acting on the account.
func (p *Principal) IsDelegated() bool {
	return p.Delegation != nil
}

// CanAccess reports whether the principal may read or mutate accountID's
// resources.
func (p *Principal) CanAccess(accountID string) bool {
	return p.IsAdmin() || p.AccountID == accountID
}

type principalKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
