package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned when a token does not parse as a JWT.
var ErrOpaqueToken = errors.New("token is not a JWT")

// AccessClaims mirrors the claims the attendance backend puts in its tokens.
type AccessClaims struct {
	UserID    string `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Inspect decodes the claims of token without checking the signature.
func Inspect(token string) (*AccessClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrOpaqueToken
	}
	claims := &AccessClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrOpaqueToken, err)
	}
	return claims, nil
}

// Expiry returns the exp claim when present.
func (c *AccessClaims) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// ExpiresWithin reports whether token carries an exp claim that falls before
// now+window. Opaque tokens and tokens without exp never report true.
func ExpiresWithin(token string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	claims, err := Inspect(token)
	if err != nil {
		return false
	}
	exp, ok := claims.Expiry()
	if !ok {
		return false
	}
	return exp.Before(now.Add(window))
}
