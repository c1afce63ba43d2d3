// Token issuance and verification.
//
// Tokens are HS256 JWTs carrying {sub, iat, exp}. Verification is a pure
// function of (header value, current time, secret): no state is read or
// written, which keeps the auth service stateless and horizontally
// replicable. The chat API never holds the signing secret; it delegates to
// the auth service over HTTP (see remote.go).
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// CredentialStore validates a username/password pair. Implementations must be
// safe for concurrent use.
type CredentialStore interface {
	// Authenticate reports whether the pair identifies a known user.
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

// Service issues and verifies signed identity tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	creds  CredentialStore

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewService constructs a Service signing with secret, issuing tokens valid
// for ttl, and validating credentials against creds.
func NewService(secret string, ttl time.Duration, creds CredentialStore) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		creds:  creds,
		now:    time.Now,
	}
}

// Issue validates the credentials and, on success, returns a signed token
// with subject = username and expiry = now + TTL. It returns
// ErrInvalidCredentials when the pair does not match.
func (s *Service) Issue(ctx context.Context, username, password string) (string, error) {
	ok, err := s.creds.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses an Authorization header value of the form "Bearer <token>",
// checks the signature and expiry, and returns the subject. It has no side
// effects and can be called concurrently.
func (s *Service) Verify(authorization string) (string, error) {
	raw, err := stripBearer(authorization)
	if err != nil {
		return "", err
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidSignature
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", ErrInvalidSignature
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidSignature
	}
	return sub, nil
}

// stripBearer extracts the raw token from "Bearer <token>".
func stripBearer(authorization string) (string, error) {
	if strings.TrimSpace(authorization) == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", ErrMalformedHeader
	}
	raw := strings.TrimSpace(authorization[len(bearerPrefix):])
	if raw == "" {
		return "", ErrMalformedHeader
	}
	return raw, nil
}
