package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/iho/numrent/internal/domain"
)

// Claims represents the JWT claims. Subject is the authenticated account;
// for a delegation token it is the admin and ActingAs the customer.
type Claims struct {
	Role     domain.Role `json:"role"`
	ActingAs string      `json:"acting_as,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the caller of an operation.
func (c *Claims) Principal() *domain.Principal {
	if c.ActingAs == "" {
		return &domain.Principal{AccountID: c.Subject, Role: c.Role}
	}

	var expiresAt time.Time
	if c.ExpiresAt != nil {
		expiresAt = c.ExpiresAt.Time
	}

	return &domain.Principal{
		AccountID: c.ActingAs,
		Role:      domain.RoleCustomer,
		Delegation: &domain.Delegation{
			ActingAs:        c.ActingAs,
			OnBehalfOfAdmin: c.Subject,
			ExpiresAt:       expiresAt,
		},
	}
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey          []byte
	tokenDuration      time.Duration
	delegationDuration time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager. Delegation tokens never outlive
// delegationDuration.
func NewJWTManager(secretKey string, tokenDuration, delegationDuration time.Duration) *JWTManager {
	if delegationDuration <= 0 || delegationDuration > tokenDuration {
		delegationDuration = tokenDuration
	}
	return &JWTManager{
		secretKey:          []byte(secretKey),
		tokenDuration:      tokenDuration,
		delegationDuration: delegationDuration,
		now:                time.Now,
	}
}

// Generate issues an access token for an account.
func (m *JWTManager) Generate(accountID string, role domain.Role) (string, error) {
	if accountID == "" || !role.IsValid() {
		return "", domain.ErrInvalidToken
	}

	return m.sign(Claims{
		Role:             role,
		RegisteredClaims: m.registered(accountID, m.tokenDuration),
	})
}

// Delegate issues a token that lets admin act as actingAs until it
// expires. ttl is capped at the manager's delegation duration.
func (m *JWTManager) Delegate(admin *domain.Principal, actingAs string, ttl time.Duration) (string, *domain.Delegation, error) {
	if admin == nil || !admin.IsAdmin() {
		return "", nil, domain.ErrForbidden
	}
	if actingAs == "" || actingAs == admin.AccountID {
		return "", nil, fmt.Errorf("%w: delegation target must be another account", domain.ErrForbidden)
	}
	if ttl <= 0 || ttl > m.delegationDuration {
		ttl = m.delegationDuration
	}

	claims := Claims{
		Role:             domain.RoleAdmin,
		ActingAs:         actingAs,
		RegisteredClaims: m.registered(admin.AccountID, ttl),
	}
	token, err := m.sign(claims)
	if err != nil {
		return "", nil, err
	}

	return token, &domain.Delegation{
		ActingAs:        actingAs,
		OnBehalfOfAdmin: admin.AccountID,
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return nil, domain.ErrInvalidToken
	}
	// Only admins may hold delegation tokens.
	if claims.ActingAs != "" && claims.Role != domain.RoleAdmin {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// Authenticate verifies a token and returns its principal.
func (m *JWTManager) Authenticate(tokenString string) (*domain.Principal, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

func (m *JWTManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (m *JWTManager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}
