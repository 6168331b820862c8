package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// quoteAudience keeps quote tokens and access tokens apart: access tokens
// carry no audience and quote tokens carry no role.
const quoteAudience = "numrent:quote"

type quoteClaims struct {
	Route   string `json:"route"`
	Service string `json:"service"`
	Price   string `json:"price"`
	jwt.RegisteredClaims
}

// SignQuote issues a token vouching for q until q.ExpiresAt.
func (m *JWTManager) SignQuote(q domain.SignedQuote) (string, error) {
	if q.Route == "" || q.ServiceCode == "" || q.Price.IsNegative() {
		return "", domain.ErrInvalidQuote
	}

	now := m.now()
	claims := quoteClaims{
		Route:   q.Route,
		Service: q.ServiceCode,
		Price:   q.Price.StringFixed(2),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Audience:  jwt.ClaimStrings{quoteAudience},
			ExpiresAt: jwt.NewNumericDate(q.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyQuote checks a quote token. Every failure, expiry included, is
// reported as domain.ErrInvalidQuote.
func (m *JWTManager) VerifyQuote(tokenString string) (*domain.SignedQuote, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&quoteClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(quoteAudience),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuote, err)
	}

	claims, ok := token.Claims.(*quoteClaims)
	if !ok || !token.Valid || claims.Route == "" || claims.Service == "" {
		return nil, domain.ErrInvalidQuote
	}

	price, err := decimal.NewFromString(claims.Price)
	if err != nil || price.IsNegative() {
		return nil, domain.ErrInvalidQuote
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &domain.SignedQuote{
		Route:       claims.Route,
		ServiceCode: claims.Service,
		Price:       price,
		ExpiresAt:   expiresAt,
	}, nil
}
