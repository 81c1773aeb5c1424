package auth

import (
	"context"
	"time"

	"photoshare/internal/domain"
	"photoshare/internal/pkg/jwt"
	"photoshare/internal/repository"
)

// UserStore is the subset of the user repository the auth service uses.
type UserStore interface {
	CreateWithCredential(ctx context.Context, u *domain.User, cred *domain.LocalCredential) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetCredentialByEmail(ctx context.Context, email string) (*domain.LocalCredential, error)
	GetCredentialByUsername(ctx context.Context, username string) (*domain.LocalCredential, error)
	GetCredentialByUserID(ctx context.Context, userID string) (*domain.LocalCredential, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	ListActive(ctx context.Context, now time.Time, f repository.ActiveFilter) ([]domain.RefreshToken, error)
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)
	Rotate(ctx context.Context, oldID string, now time.Time, next *domain.RefreshToken) error
	RevokeExcess(ctx context.Context, userID string, keep int, now time.Time) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}

type SecretHasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, encoded string) (bool, error)
}

type AccessIssuer interface {
	Issue(userID string) (string, error)
	TTL() time.Duration
}

// RefreshEnvelope signs and opens the token handed to clients. The
// envelope only carries the secret; the stored hash decides validity.
type RefreshEnvelope interface {
	Issue(userID, secret string) (string, time.Time, error)
	Parse(token string) (*jwt.RefreshClaims, error)
	TTL() time.Duration
}
