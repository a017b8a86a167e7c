package token

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the slice of the access token the client inspects. The token is
// never verified here; the backend remains the authority on validity.
type Claims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// Parse decodes the claims of a JWT without verifying its signature.
func Parse(raw string) (Claims, error) {
	tok, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims := Claims{ExpiresAt: tok.Expiration()}
	if v, ok := tok.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			claims.UserID = s
		}
	}
	if v, ok := tok.Get("role"); ok {
		if s, ok := v.(string); ok {
			claims.Role = s
		}
	}
	return claims, nil
}

// Expired reports whether the token's exp claim lies in the past. A zero
// expiry is treated as not expired.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}
