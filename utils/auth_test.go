package utils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTRoundTrip(t *testing.T) {
	JwtKey = []byte("test-secret")

	token, err := GenerateJWT("U1", "abel@example.com", "host")
	require.NoError(t, err)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return JwtKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "U1", claims.UserID)
	assert.Equal(t, "abel@example.com", claims.Email)
	assert.Equal(t, "host", claims.Role)
	assert.InDelta(t, time.Now().Add(24*time.Hour).Unix(), claims.ExpiresAt, 60)
}

func TestParseRejectsWrongKey(t *testing.T) {
	JwtKey = []byte("test-secret")

	token, err := GenerateJWT("U1", "abel@example.com", "user")
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("another-secret"), nil
	})
	assert.Error(t, err)
}
