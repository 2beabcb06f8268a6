package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/models"
	"github.com/noah-isme/manabi-api/pkg/config"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(config.AuthConfig{JWTSecret: "secret", Issuer: "idp", TeacherEmails: []string{"teacher@example.com"}}, nil)
}

func TestAuthServiceDerivesRoles(t *testing.T) {
	svc := newTestAuthService()

	token, err := svc.IssueToken("Teacher@Example.com", time.Minute)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, models.RoleTeacher, claims.Role)

	token, err = svc.IssueToken("hana@example.com", time.Minute)
	require.NoError(t, err)
	claims, err = svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceIgnoresRoleClaim(t *testing.T) {
	svc := newTestAuthService()
	claims := &models.JWTClaims{
		Email: "hana@example.com",
		Role:  models.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, parsed.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(config.AuthConfig{JWTSecret: "other", Issuer: "idp"}, nil)
	forged, err := other.IssueToken("hana@example.com", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewAuthService(config.AuthConfig{JWTSecret: "secret", Issuer: "elsewhere"}, nil)
	token, err := wrongIssuer.IssueToken("hana@example.com", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	noEmail, err := svc.IssueToken("", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(noEmail)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Issuer: "idp"}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(noExpiry)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
