package auth

import (
	"devmatch/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Generate("user-123")
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-123", claims.UserID)
	req.Equal("user-123", claims.Subject)
}

func TestTokenIssuer_Rejects_Invalid_Tokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Generate("user-123")
	require.NoError(t, err)
	otherKey, err := NewTokenIssuer("other", time.Hour).Generate("user-123")
	require.NoError(t, err)
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "user-123"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid-token-string"},
		{"expired", expiredToken},
		{"signed with another key", otherKey},
		{"unsigned", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Validate(tt.token)
			require.ErrorIs(t, err, errors.ErrUnauthenticated)
		})
	}
}
