package auth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/core"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrMissingUser  = fmt.Errorf("%w: user is required", core.ErrBadRequest)
	ErrUserMismatch = errors.New("claimed user does not match token subject")
)

// Verifier resolves the identity a connection binds to.
//
// With a JWT secret configured the token is mandatory and its subject is the
// identity. Without one the server trusts the user the client names; this is
// meant for local development behind an authenticating proxy.
type Verifier struct {
	cfg     *JWTConfig
	trusted bool
}

// NewVerifier creates a Verifier. An empty secret selects trusted mode.
func NewVerifier(cfg *JWTConfig, logger *zerolog.Logger) *Verifier {
	trusted := cfg == nil || len(cfg.Secret) == 0
	if trusted && logger != nil {
		logger.Warn().Msg("auth.jwt_secret is empty: bind requests are trusted without a token")
	}
	return &Verifier{cfg: cfg, trusted: trusted}
}

// Trusted reports whether the verifier accepts unauthenticated identities.
func (v *Verifier) Trusted() bool {
	return v.trusted
}

// VerifyIdentity returns the identity to bind. user is what the client
// claims, token its credential.
func (v *Verifier) VerifyIdentity(user, token string) (string, error) {
	if v.trusted {
		if user == "" {
			return "", ErrMissingUser
		}
		return user, nil
	}

	if token == "" {
		return "", ErrMissingToken
	}
	claims, err := ValidateToken(v.cfg, token)
	if err != nil {
		return "", err
	}
	if user != "" && user != claims.Subject {
		return "", fmt.Errorf("%w: %q", ErrUserMismatch, user)
	}
	return claims.Subject, nil
}
