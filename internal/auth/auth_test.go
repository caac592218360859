package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("uid-1", "ali@example.com", "PHARMACY", "ph-1", time.Hour)
	require.NoError(t, err)

	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return JwtSecret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "uid-1", claims.UID)
	assert.Equal(t, "PHARMACY", claims.Role)
	assert.Equal(t, "ph-1", claims.PharmacyID)
}

func TestActorID(t *testing.T) {
	pharmacy := &JWTClaims{UID: "uid-1", PharmacyID: "ph-1"}
	assert.Equal(t, "ph-1", pharmacy.ActorID())

	patient := &JWTClaims{UID: "uid-2"}
	assert.Equal(t, "uid-2", patient.ActorID())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("admin123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
