package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

var ErrInvalidOrExpired = errors.New("invalid or expired token")

// Claims is shared by access tokens and refresh envelopes; Purpose keeps a
// misrouted refresh token from ever passing as an access token.
type Claims struct {
	Purpose string `json:"typ"`
	jwtlib.RegisteredClaims
}

type Option func(*signer)

// WithClock replaces time.Now for both issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(s *signer) { s.now = now }
}

type signer struct {
	secret  []byte
	ttl     time.Duration
	purpose string
	now     func() time.Time
}

func newSigner(secret string, ttl time.Duration, purpose string, opts []Option) signer {
	s := signer{
		secret:  []byte(secret),
		ttl:     ttl,
		purpose: purpose,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s signer) sign(subject, id string) (string, time.Time, error) {
	now := s.now()
	expiresAt := jwtlib.NewNumericDate(now.Add(s.ttl))

	claims := Claims{
		Purpose: s.purpose,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", s.purpose, err)
	}
	return token, expiresAt.Time, nil
}

func (s signer) parse(tokenStr string) (*Claims, error) {
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenStr), &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidOrExpired
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Purpose != s.purpose || claims.Subject == "" {
		return nil, ErrInvalidOrExpired
	}
	return claims, nil
}

// Issuer signs and verifies short-lived, stateless access tokens.
type Issuer struct {
	signer signer
}

func New(secret string, ttl time.Duration, opts ...Option) *Issuer {
	return &Issuer{signer: newSigner(secret, ttl, PurposeAccess, opts)}
}

func (i *Issuer) TTL() time.Duration { return i.signer.ttl }

func (i *Issuer) Issue(userID string) (string, error) {
	token, _, err := i.signer.sign(userID, "")
	return token, err
}

// Verify checks signature, expiry and purpose and returns the subject.
func (i *Issuer) Verify(tokenStr string) (string, error) {
	claims, err := i.signer.parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RefreshClaims is what a valid refresh envelope carries.
type RefreshClaims struct {
	UserID    string
	Secret    string
	ExpiresAt time.Time
}

// RefreshSigner wraps an opaque refresh secret in a signed, long-lived
// envelope. The envelope alone never authorizes anything: the secret must
// still match a stored hash.
type RefreshSigner struct {
	signer signer
}

func NewRefreshSigner(secret string, ttl time.Duration, opts ...Option) *RefreshSigner {
	return &RefreshSigner{signer: newSigner(secret, ttl, PurposeRefresh, opts)}
}

func (r *RefreshSigner) TTL() time.Duration { return r.signer.ttl }

func (r *RefreshSigner) Issue(userID, secret string) (string, time.Time, error) {
	return r.signer.sign(userID, secret)
}

func (r *RefreshSigner) Parse(tokenStr string) (*RefreshClaims, error) {
	claims, err := r.signer.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidOrExpired
	}
	return &RefreshClaims{
		UserID:    claims.Subject,
		Secret:    claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
