package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidUsername = errors.New("username must be 1-19 letters, digits, underscores or dashes")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,19}$`)

func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// Claims carries the username in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for username valid for ttl.
func IssueToken(secret []byte, username string, ttl time.Duration) (string, error) {
	if !ValidUsername(username) {
		return "", ErrInvalidUsername
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies token and returns the username it was issued for.
func ParseToken(secret []byte, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || !ValidUsername(claims.Subject) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
