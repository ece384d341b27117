package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"agent_gateway/internal/config"
)

const issuer = "agent-gateway"

// ErrInvalidToken is returned for tokens that fail signature, expiry or role checks.
var ErrInvalidToken = errors.New("invalid token")

// AdminClaims are the claims of a dashboard or integration token.
type AdminClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether any of the token's roles grants required.
func (c *AdminClaims) HasRole(required Role) bool {
	for _, r := range c.Roles {
		if Role(r).HasPermission(required) {
			return true
		}
	}
	return false
}

// GenerateAdminJWT signs a token for subject with the given roles.
func GenerateAdminJWT(subject string, roles []Role, ttl time.Duration, cfg *config.Config) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if len(roles) == 0 {
		return "", time.Time{}, errors.New("at least one role is required")
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			return "", time.Time{}, fmt.Errorf("unknown role %q", r)
		}
		names = append(names, r.String())
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &AdminClaims{
		Roles: names,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.JWTSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAdminJWT verifies an HS256 token and returns its claims.
func ValidateAdminJWT(tokenString string, cfg *config.Config) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if len(claims.Roles) == 0 {
		return nil, fmt.Errorf("%w: no roles", ErrInvalidToken)
	}
	return claims, nil
}
