package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueTokenIsUniqueAndNonEmpty(t *testing.T) {
	a := GenerateOpaqueToken()
	b := GenerateOpaqueToken()

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)

	identity, err := AnonymousVerifier{}.Verify(a)
	require.NoError(t, err)
	require.Equal(t, a, identity.UserID)
}

func TestGenerateDevJWTRoundTripsThroughJWTVerifier(t *testing.T) {
	secret := []byte("dev-secret")
	signed, err := GenerateDevJWT(secret, "user-42", time.Hour)
	require.NoError(t, err)

	verifier, err := NewJWTVerifier(secret)
	require.NoError(t, err)

	identity, err := verifier.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-42", identity.UserID)
	require.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, time.Minute)
}

func TestGenerateDevJWTRejectedByWrongSecret(t *testing.T) {
	signed, err := GenerateDevJWT([]byte("dev-secret"), "user-42", time.Hour)
	require.NoError(t, err)

	verifier, err := NewJWTVerifier([]byte("other-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateDevJWTExpired(t *testing.T) {
	secret := []byte("dev-secret")
	signed, err := GenerateDevJWT(secret, "user-42", -time.Hour)
	require.NoError(t, err)

	verifier, err := NewJWTVerifier(secret)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}
