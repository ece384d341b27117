package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent_gateway/internal/config"
)

func getTestConfig() *config.Config {
	return &config.Config{
		JWTSecret: []byte("test-secret-key-for-testing"),
	}
}

func TestGenerateAndValidateAdminJWT(t *testing.T) {
	cfg := getTestConfig()

	token, exp, err := GenerateAdminJWT("ops@shop.vn", []Role{RoleAdmin}, time.Hour, cfg)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ValidateAdminJWT(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ops@shop.vn", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestGenerateAdminJWT_Rejects(t *testing.T) {
	cfg := getTestConfig()

	_, _, err := GenerateAdminJWT("", []Role{RoleAdmin}, time.Hour, cfg)
	assert.Error(t, err)
	_, _, err = GenerateAdminJWT("x", nil, time.Hour, cfg)
	assert.Error(t, err)
	_, _, err = GenerateAdminJWT("x", []Role{"root"}, time.Hour, cfg)
	assert.Error(t, err)
}

func TestValidateAdminJWT_Failures(t *testing.T) {
	cfg := getTestConfig()

	expired, _, err := GenerateAdminJWT("x", []Role{RoleViewer}, -time.Minute, cfg)
	require.NoError(t, err)

	otherSecret, _, err := GenerateAdminJWT("x", []Role{RoleViewer}, time.Hour, &config.Config{JWTSecret: []byte("other")})
	require.NoError(t, err)

	noRoles, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(cfg.JWTSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		Roles:            []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
	}).SignedString(cfg.JWTSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &AdminClaims{
		Roles:            []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": otherSecret,
		"no roles":     noRoles,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateAdminJWT(token, cfg)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleAdmin.HasPermission(RoleViewer))
	assert.True(t, RoleAdmin.HasPermission(RoleIntegration))
	assert.False(t, RoleViewer.HasPermission(RoleAdmin))
	assert.False(t, RoleIntegration.HasPermission(RoleViewer))
	assert.True(t, RoleViewer.HasPermission(RoleViewer))

	claims := &AdminClaims{Roles: []string{"viewer", "integration"}}
	assert.True(t, claims.HasRole(RoleIntegration))
	assert.False(t, claims.HasRole(RoleAdmin))

	roles, err := ParseRoles(" Admin, viewer ,")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleViewer}, roles)

	_, err = ParseRoles("root")
	assert.Error(t, err)
	_, err = ParseRoles(" , ")
	assert.Error(t, err)
}
