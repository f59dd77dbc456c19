package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cristalhq/jwt/v4"
)

// ErrInvalidToken is returned for malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired session token")

// Claims are the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	signer   jwt.Signer
	verifier jwt.Verifier
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates an issuer for the given secret and lifetime.
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, secret)
	if err != nil {
		return nil, fmt.Errorf("creating token signer: %w", err)
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, secret)
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	return &TokenIssuer{
		signer:   signer,
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed token for the principal and its expiry time.
func (i *TokenIssuer) Issue(p Principal) (string, time.Time, error) {
	now := i.now().UTC()
	expires := now.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: p.Role,
	}

	token, err := jwt.NewBuilder(i.signer).Build(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("building token: %w", err)
	}

	return token.String(), expires, nil
}

// Verify checks the signature and expiry of raw and returns its principal.
func (i *TokenIssuer) Verify(raw string) (Principal, error) {
	var claims Claims
	if err := jwt.ParseClaims([]byte(raw), i.verifier, &claims); err != nil {
		return Principal{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(i.now()) || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: claims.Subject, Role: claims.Role}, nil
}
