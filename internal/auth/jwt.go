// Package auth issues and checks the session token that carries the
// requester's identity.
//
// IDENTITY IS AN EMAIL:
// Every game, collection and platform tally is partitioned by its owner's
// email, so the token's job is to say "this request comes from a@x.com".
// The email is put into the token already normalized (trimmed,
// lower-cased) and normalized again on the way out.
//
// SIGN-IN FLOW:
//  1. /auth/github/login redirects to GitHub
//  2. GitHub calls /auth/github/callback with a code
//  3. The server exchanges the code for the GitHub profile (oauth.go),
//     upserts the user and signs a JWT with the email claim
//  4. The JWT goes back as an HttpOnly cookie; API clients may send it
//     as "Authorization: Bearer <jwt>" instead
//  5. middleware.go validates it and puts the email in the request context
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "game-library"

// DefaultTokenTTL is used when NewTokenService gets a zero ttl.
const DefaultTokenTTL = 24 * time.Hour

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService needs a secret of at least 16 characters.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the standard registered claims plus the
// owner email. Subject holds the internal user id.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate signs a token for the given user that expires after the
// service's ttl.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, s.ttl)
}

// GenerateWithDuration is Generate with an explicit lifetime. Tests use it
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", errors.New("auth: cannot issue a token without an email")
	}

	now := time.Now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer and expiry and returns the
// normalized email claim.
//
// jwt.WithValidMethods pins HS256 so a token declaring "none" or an RSA
// algorithm is rejected before the key is ever used.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}

	email := NormalizeEmail(c.Email)
	if email == "" {
		return "", errors.New("auth: token has no email")
	}
	return email, nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
