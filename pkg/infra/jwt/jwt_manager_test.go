package jwt

import (
	"testing"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/config"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndValidate(t *testing.T) {
	m := NewJwtManager(&config.ServerConfig{SecretKey: "s3cr3t"})

	token, err := m.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)
	assert.NoError(t, m.ValidateToken(token))

	claims, err := m.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	m := NewJwtManager(&config.ServerConfig{SecretKey: "s3cr3t"})
	other := NewJwtManager(&config.ServerConfig{SecretKey: "different"})

	foreign, err := other.CreateToken("intruder", time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, m.ValidateToken(foreign), ErrInvalidToken)

	noExpiry, err := m.CreateToken("ops", 0)
	require.NoError(t, err)
	assert.NoError(t, m.ValidateToken(noExpiry))

	claims := &Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("s3cr3t"))
	require.NoError(t, err)
	assert.ErrorIs(t, m.ValidateToken(expired), ErrExpiredToken)

	assert.ErrorIs(t, m.ValidateToken("not.a.token"), ErrInvalidToken)
}
