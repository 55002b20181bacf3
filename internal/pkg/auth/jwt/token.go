package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// DecodeIdentity extracts the identity claims from a session token without verifying
// its signature. Verification happens server-side; the client only needs the claims
// to know who it is and when the token expires.
func DecodeIdentity(tokenString string) (*Payload, error) {
	claims := &Payload{}

	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.UserID == 0 || claims.Nickname == "" {
		return nil, errors.New("session token is missing identity claims")
	}

	return claims, nil
}

// ExpiresAt returns the expiry instant of the token, or the zero time when the
// token carries no expiration claim.
func (p *Payload) ExpiresAt() time.Time {
	if p.StandardClaims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(p.StandardClaims.ExpiresAt, 0)
}

// Expired reports whether the token expiry has passed at the given instant.
// A token without an expiration claim never expires.
func (p *Payload) Expired(now time.Time) bool {
	exp := p.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}
