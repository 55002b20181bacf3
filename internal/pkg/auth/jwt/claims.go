package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims carried by the
// session token the persistence API issues at login. The client decodes these claims
// to learn its own identity and the token lifetime; it never verifies the signature,
// which is the server's responsibility on every authenticated call.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer).
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the registered user's numeric identifier.
	UserID int `json:"user_id"`

	// Nickname is the unique display name, the key used by presence events
	// that omit the numeric id.
	Nickname string `json:"nickname"`
}
