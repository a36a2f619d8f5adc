package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateOpaqueToken returns a cryptographically random 12-character
// token, for local development against AnonymousVerifier (which treats
// any non-empty token string as its own user id — an opaque random
// value stands in for "some unique developer"). Ported directly from
// the teacher's pkg/server/secret.go GenerateOTP: 9 random bytes,
// URL-safe base64 with no padding.
func GenerateOpaqueToken() string {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateDevJWT signs a short-lived HS256 token carrying userID as its
// subject, for local development against JWTVerifier without standing
// up a real identity provider.
func GenerateDevJWT(secret []byte, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
