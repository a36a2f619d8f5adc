// Package auth verifies the bearer tokens websocket and REST clients
// present, standing in for original_source's app/api/deps.py
// get_current_user/get_user_from_token. Unlike sidechain's auth.Service,
// this module never stores credentials, and apart from the local
// development helpers in devtoken.go it never issues them — collabtext
// trusts an upstream identity provider and only needs to verify and
// extract a user id from an already-issued JWT.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and
	// expired claims alike — callers don't get to distinguish why a
	// token was rejected, matching deps.py's single credentials_exception.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrMissingUser  = errors.New("auth: token has no subject")
)

// Identity is what a verified token resolves to.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Verifier checks a bearer token string and returns the identity it
// carries. Implementations must not mutate shared state per call.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier verifies HS256 tokens signed with a shared secret, mirroring
// sidechain's Service.ValidateToken but without its database lookup:
// collabtext treats the token's claims as authoritative.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a Verifier around secret. secret must be non-empty;
// an empty secret would let an attacker forge the "none" algorithm or a
// zero-length HMAC key, so the constructor refuses it outright.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: jwt secret must not be empty")
	}
	return &JWTVerifier{secret: secret}, nil
}

func (v *JWTVerifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return Identity{}, ErrMissingUser
	}

	identity := Identity{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}

	return identity, nil
}

// AnonymousVerifier accepts any non-empty token string as its own user id,
// used for local development and tests where wiring a real identity
// provider would only add friction (spec §8: auth is out of scope for the
// transform engine itself, only required at the transport boundary).
type AnonymousVerifier struct{}

func (AnonymousVerifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingUser
	}
	return Identity{UserID: token}, nil
}
