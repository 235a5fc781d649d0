package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bittu292021/chatbox/internal/core"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, "alice", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "alice" || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := testJWTConfig()

	other := *cfg
	other.Secret = []byte("other-secret")
	wrongSecret, _ := GenerateToken(&other, "alice", "")

	wrongAud := *cfg
	wrongAud.Audience = "elsewhere"
	badAudience, _ := GenerateToken(&wrongAud, "alice", "")

	wrongIss := *cfg
	wrongIss.Issuer = "mallory"
	badIssuer, _ := GenerateToken(&wrongIss, "alice", "")

	expiredCfg := *cfg
	expiredCfg.TTL = -time.Minute
	expired, _ := GenerateToken(&expiredCfg, "alice", "")

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "test",
		"aud": "test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject, _ := noSub.SignedString(cfg.Secret)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"wrong secret":  wrongSecret,
		"wrong aud":     badAudience,
		"wrong issuer":  badIssuer,
		"expired":       expired,
		"empty subject": noSubject,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ValidateToken(cfg, tok); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestVerifierWithSecret(t *testing.T) {
	cfg := testJWTConfig()
	v := NewVerifier(cfg, nil)
	if v.Trusted() {
		t.Fatalf("verifier with a secret must not be trusted")
	}

	token, err := GenerateToken(cfg, "alice", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	user, err := v.VerifyIdentity("", token)
	if err != nil || user != "alice" {
		t.Fatalf("VerifyIdentity = %q, %v", user, err)
	}
	if user, err = v.VerifyIdentity("alice", token); err != nil || user != "alice" {
		t.Fatalf("matching claimed user: %q, %v", user, err)
	}
	if _, err := v.VerifyIdentity("bob", token); !errors.Is(err, ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}
	if _, err := v.VerifyIdentity("alice", ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestVerifierTrustedMode(t *testing.T) {
	v := NewVerifier(&JWTConfig{}, nil)
	if !v.Trusted() {
		t.Fatalf("empty secret should select trusted mode")
	}

	user, err := v.VerifyIdentity("alice", "")
	if err != nil || user != "alice" {
		t.Fatalf("VerifyIdentity = %q, %v", user, err)
	}
	_, err = v.VerifyIdentity("", "")
	if !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	// a bind without a user is a malformed request, not a failed login
	if !errors.Is(err, core.ErrBadRequest) {
		t.Fatalf("ErrMissingUser must match core.ErrBadRequest, got %v", err)
	}
	if code := core.ToCoreError(err).Code; code != core.ErrCodeBadRequest {
		t.Fatalf("code = %q, want %q", code, core.ErrCodeBadRequest)
	}
}
