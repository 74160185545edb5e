package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func testSubject() TokenSubject {
	return TokenSubject{UserID: 123, CompanyID: 7, Email: "officer@example.ae", Role: "admin"}
}

func TestGenerateTokenPair(t *testing.T) {
	tokens, err := GenerateTokenPair(testSubject(), testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, tokens)

	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
	assert.Equal(t, int64(900), tokens.ExpiresIn)
}

func TestValidateToken(t *testing.T) {
	tokens, err := GenerateTokenPair(testSubject(), testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		secret    string
		tokenType string
		wantErr   error
	}{
		{name: "Valid access token", token: tokens.AccessToken, secret: testSecret, tokenType: TokenTypeAccess},
		{name: "Valid refresh token", token: tokens.RefreshToken, secret: testSecret, tokenType: TokenTypeRefresh},
		{name: "Invalid secret", token: tokens.AccessToken, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Invalid token format", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty token", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, claims)
			assert.Equal(t, uint(123), claims.UserID)
			assert.Equal(t, uint(7), claims.CompanyID)
			assert.Equal(t, "officer@example.ae", claims.Email)
			assert.Equal(t, "admin", claims.Role)
			assert.Equal(t, tt.tokenType, claims.TokenType)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	tokens, err := GenerateTokenPair(testSubject(), testSecret, time.Nanosecond, time.Nanosecond)
	require.NoError(t, err)

	// jwt validates expiry with second precision
	time.Sleep(1100 * time.Millisecond)

	claims, err := ValidateToken(tokens.AccessToken, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestClaimsRemainingTTL(t *testing.T) {
	tokens, err := GenerateTokenPair(testSubject(), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(tokens.AccessToken, testSecret)
	require.NoError(t, err)

	ttl := claims.RemainingTTL(time.Now())
	assert.True(t, ttl > 14*time.Minute && ttl <= 15*time.Minute)
	assert.Equal(t, time.Duration(0), claims.RemainingTTL(time.Now().Add(time.Hour)))
}
