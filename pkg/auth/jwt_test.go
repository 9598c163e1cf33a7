package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() JWTConfig {
	return JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     "test-secret",
		Issuer:        "thoughtgraph",
		Audience:      []string{"thoughtgraph-api"},
		ExpiryTime:    time.Hour,
	}
}

func TestJWT_RoundTrip(t *testing.T) {
	generator, err := NewJWTGenerator(testConfig())
	require.NoError(t, err)
	validator, err := NewJWTValidator(testConfig())
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTValidator_Rejects(t *testing.T) {
	validator, err := NewJWTValidator(testConfig())
	require.NoError(t, err)

	otherSecret := testConfig()
	otherSecret.SecretKey = "other"
	forged, err := NewJWTGenerator(otherSecret)
	require.NoError(t, err)
	forgedToken, err := forged.GenerateToken("user-1", "")
	require.NoError(t, err)

	expiredGen := mustGenerator(t, testConfig())
	expiredGen.expiryTime = -time.Minute
	expiredToken, err := expiredGen.GenerateToken("user-1", "")
	require.NoError(t, err)

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	wrongIssuerToken, err := mustGenerator(t, otherIssuer).GenerateToken("user-1", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "missing", token: "", wantErr: ErrMissingToken},
		{name: "bearer only", token: "Bearer ", wantErr: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "wrong secret", token: forgedToken, wantErr: ErrInvalidSignature},
		{name: "expired", token: expiredToken, wantErr: ErrExpiredToken},
		{name: "wrong issuer", token: wrongIssuerToken, wantErr: ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewJWTValidator_Config(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)

	_, err = NewJWTValidator(JWTConfig{SigningMethod: "ES512", SecretKey: "x"})
	assert.Error(t, err)

	_, err = NewJWTValidator(JWTConfig{SigningMethod: "RS256"})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
}

func mustGenerator(t *testing.T, cfg JWTConfig) *JWTGenerator {
	t.Helper()
	g, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	return g
}
