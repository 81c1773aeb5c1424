package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"photoshare/internal/domain"
	"photoshare/internal/pkg/hasher"
	"photoshare/internal/pkg/ids"
	"photoshare/internal/repository"

	"github.com/google/uuid"
)

const maxUserAgentLen = 512

type RefreshConfig struct {
	// Pepper keys the lookup fingerprint.
	Pepper string
	// LookupIndex narrows candidate scans by fingerprint.
	LookupIndex bool
	// MaxSessions caps active sessions per user; 0 disables the cap.
	MaxSessions int

	Now               func() time.Time
	ObserveCandidates func(n int)
	Logger            *slog.Logger
}

// RefreshManager issues, redeems and revokes refresh tokens. Records only
// hold salted hashes, so redemption verifies the presented secret against
// each active candidate until one matches.
type RefreshManager struct {
	store    RefreshTokenStore
	hasher   SecretHasher
	envelope RefreshEnvelope
	cfg      RefreshConfig
}

type IssuedRefresh struct {
	Token  string
	Record *domain.RefreshToken
}

type RedeemedRefresh struct {
	UserID string
	IssuedRefresh
}

func NewRefreshManager(store RefreshTokenStore, h SecretHasher, envelope RefreshEnvelope, cfg RefreshConfig) *RefreshManager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RefreshManager{store: store, hasher: h, envelope: envelope, cfg: cfg}
}

func (m *RefreshManager) now() time.Time {
	return m.cfg.Now().UTC()
}

// Issue creates a new refresh token for userID and trims the user's
// oldest sessions beyond the cap.
func (m *RefreshManager) Issue(ctx context.Context, userID string, meta RequestMeta) (*IssuedRefresh, error) {
	issued, err := m.mint(ctx, userID, meta)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, issued.Record); err != nil {
		return nil, err
	}
	m.enforceSessionCap(ctx, userID)
	return issued, nil
}

// Redeem exchanges a presented token for a fresh one. The presented
// record is revoked in the same transaction that stores its replacement;
// a concurrent redemption of the same token gets ErrRefreshNotFound.
func (m *RefreshManager) Redeem(ctx context.Context, presented string, meta RequestMeta) (*RedeemedRefresh, error) {
	userID, current, err := m.match(ctx, presented)
	if err != nil {
		return nil, err
	}

	next, err := m.mint(ctx, userID, meta)
	if err != nil {
		return nil, err
	}

	if err := m.store.Rotate(ctx, current.ID, m.now(), next.Record); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	return &RedeemedRefresh{UserID: userID, IssuedRefresh: *next}, nil
}

// Revoke deactivates the record matching presented. Unknown, expired and
// malformed tokens are ignored.
func (m *RefreshManager) Revoke(ctx context.Context, presented string) error {
	_, current, err := m.match(ctx, presented)
	if errors.Is(err, ErrInvalidRefresh) || errors.Is(err, ErrRefreshNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := m.store.Revoke(ctx, current.ID, m.now()); err != nil {
		return err
	}
	return nil
}

// RevokeAll ends every active session of userID.
func (m *RefreshManager) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return m.store.RevokeAllForUser(ctx, userID, m.now())
}

func (m *RefreshManager) match(ctx context.Context, presented string) (string, *domain.RefreshToken, error) {
	claims, err := m.envelope.Parse(presented)
	if err != nil {
		return "", nil, ErrInvalidRefresh
	}

	filter := repository.ActiveFilter{UserID: claims.UserID}
	if m.cfg.LookupIndex {
		filter.LookupKey = m.lookupKey(claims.Secret)
	}

	candidates, err := m.store.ListActive(ctx, m.now(), filter)
	if err != nil {
		return "", nil, err
	}
	if m.cfg.ObserveCandidates != nil {
		m.cfg.ObserveCandidates(len(candidates))
	}

	for i := range candidates {
		ok, err := m.hasher.Verify(ctx, claims.Secret, candidates[i].TokenHash)
		if errors.Is(err, hasher.ErrUnknownFormat) {
			m.cfg.Logger.Warn("refresh record has unreadable hash", slog.String("refresh_id", candidates[i].ID))
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("verify refresh secret: %w", err)
		}
		if ok {
			return claims.UserID, &candidates[i], nil
		}
	}
	return "", nil, ErrRefreshNotFound
}

// mint signs a new envelope and builds the matching record without
// storing it.
func (m *RefreshManager) mint(ctx context.Context, userID string, meta RequestMeta) (*IssuedRefresh, error) {
	now := m.now()
	secret := uuid.NewString()

	token, expiresAt, err := m.envelope.Issue(userID, secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	hash, err := m.hasher.Hash(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("hash refresh secret: %w", err)
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return nil, err
	}

	return &IssuedRefresh{
		Token: token,
		Record: &domain.RefreshToken{
			ID:        id,
			UserID:    userID,
			TokenHash: hash,
			LookupKey: m.lookupKey(secret),
			ExpiresAt: expiresAt.UTC(),
			UserAgent: nullableString(meta.UserAgent, maxUserAgentLen),
			IP:        nullableString(meta.IP, 64),
			CreatedAt: now,
		},
	}, nil
}

func (m *RefreshManager) lookupKey(secret string) string {
	mac := hmac.New(sha256.New, []byte(m.cfg.Pepper))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *RefreshManager) enforceSessionCap(ctx context.Context, userID string) {
	if m.cfg.MaxSessions <= 0 {
		return
	}
	n, err := m.store.RevokeExcess(ctx, userID, m.cfg.MaxSessions, m.now())
	if err != nil {
		m.cfg.Logger.Warn("session cap enforcement failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	if n > 0 {
		m.cfg.Logger.Info("revoked sessions over cap",
			slog.String("user_id", userID),
			slog.Int64("revoked", n),
		)
	}
}

func nullableString(v string, limit int) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(v) > limit {
		v = v[:limit]
	}
	return &v
}
