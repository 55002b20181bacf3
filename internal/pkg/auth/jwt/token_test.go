package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
)

func sign(t *testing.T, claims gojwt.Claims) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestDecodeIdentity(t *testing.T) {
	t.Run("extracts claims without verification", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		token := sign(t, &Payload{
			StandardClaims: gojwt.StandardClaims{ExpiresAt: exp.Unix()},
			UserID:         7,
			Nickname:       "alice",
		})

		payload, err := DecodeIdentity(token)
		if err != nil {
			t.Fatalf("DecodeIdentity returned error: %v", err)
		}
		if payload.UserID != 7 || payload.Nickname != "alice" {
			t.Errorf("claims = %d/%q, want 7/alice", payload.UserID, payload.Nickname)
		}
		if !payload.ExpiresAt().Equal(exp) {
			t.Errorf("ExpiresAt = %v, want %v", payload.ExpiresAt(), exp)
		}
		if payload.Expired(time.Now()) {
			t.Error("token reported expired before its expiry")
		}
		if !payload.Expired(exp.Add(time.Second)) {
			t.Error("token not reported expired after its expiry")
		}
	})

	t.Run("rejects tokens without identity claims", func(t *testing.T) {
		token := sign(t, &Payload{Nickname: "alice"})

		if _, err := DecodeIdentity(token); err == nil {
			t.Error("expected an error for a token without user_id")
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := DecodeIdentity("not-a-token"); err == nil {
			t.Error("expected an error for a malformed token")
		}
	})

	t.Run("token without expiry never expires", func(t *testing.T) {
		payload := &Payload{UserID: 1, Nickname: "a"}
		if payload.Expired(time.Now().Add(1000 * time.Hour)) {
			t.Error("token without exp claim reported expired")
		}
	})
}
