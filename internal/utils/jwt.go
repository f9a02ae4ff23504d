package utils // package utils provides helpers for session token creation and hashing

import (
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/nixflow/repair-tracker/internal/model"
)

// SessionToken represents a signed JWT session token along with its expiry.
// Sessions are stateless: logout is client-side discard and there is no
// server-side revocation list.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a user.  The claims
// carry the user ID (sub), username, role, expiration and issued-at; the
// TTL is expressed in hours (24 by default, configurable).
func NewSessionToken(secret string, u *model.User, ttlHours int) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlHours) * time.Hour)
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"role":     string(u.Role),
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
