package jwt

import (
	"Plant-Care-Backend/domain"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserIDByToken_RoundTrip(t *testing.T) {
	svc := NewJWTServiceWithSecret("test-secret")

	token, err := svc.GenerateTokenUser("7d9f3c1e-5b2a-4c8d-9e0f-1a2b3c4d5e6f", "user")
	require.NoError(t, err)

	id, role, err := svc.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7d9f3c1e-5b2a-4c8d-9e0f-1a2b3c4d5e6f", id)
	assert.Equal(t, "user", role)
}

func TestGetUserIDByToken_Rejections(t *testing.T) {
	svc := NewJWTServiceWithSecret("test-secret")

	expired := &jwtService{
		secretKey: "test-secret",
		issuer:    "PLANT-CARE",
		now:       func() time.Time { return time.Now().Add(-3 * time.Hour) },
	}
	expiredToken, err := expired.GenerateTokenUser("u", "user")
	require.NoError(t, err)

	foreign, err := NewJWTServiceWithSecret("other-secret").GenerateTokenUser("u", "user")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		token string
		want  error
	}{
		"expired":        {expiredToken, domain.ErrTokenExpired},
		"wrong secret":   {foreign, domain.ErrTokenInvalid},
		"garbage":        {"not.a.token", domain.ErrTokenInvalid},
		"unsigned token": {none, domain.ErrTokenInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.GetUserIDByToken(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
