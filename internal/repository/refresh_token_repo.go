package repository

import (
	"context"
	"fmt"
	"time"

	"photoshare/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository provides DB access for refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// ActiveFilter narrows ListActive. Empty fields are not applied.
type ActiveFilter struct {
	UserID    string
	LookupKey string
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error; err != nil {
		return fmt.Errorf("create refresh token: %w", classify(err))
	}
	return nil
}

// ListActive returns non-revoked, non-expired records, newest first.
func (r *RefreshTokenRepository) ListActive(ctx context.Context, now time.Time, f ActiveFilter) ([]domain.RefreshToken, error) {
	q := r.db.WithContext(ctx).
		Where("revoked_at IS NULL AND expires_at > ?", now.UTC())
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.LookupKey != "" {
		q = q.Where("lookup_key = ?", f.LookupKey)
	}

	var out []domain.RefreshToken
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list active refresh tokens: %w", err)
	}
	return out, nil
}

func (r *RefreshTokenRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

// Revoke marks the record revoked if it is still active. It reports
// whether this call performed the transition.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Rotate revokes oldID and inserts next in one transaction. If oldID was
// already revoked nothing is written and ErrAlreadyRevoked is returned.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID string, now time.Time, next *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", oldID).
			Update("revoked_at", now.UTC())
		if res.Error != nil {
			return fmt.Errorf("revoke rotated refresh token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRevoked
		}

		from := oldID
		next.RotatedFromID = &from
		if err := tx.Omit(clause.Associations).Create(next).Error; err != nil {
			return fmt.Errorf("create rotated refresh token: %w", classify(err))
		}
		return nil
	})
}

// RevokeExcess keeps the newest `keep` active sessions of a user and
// revokes the rest.
func (r *RefreshTokenRepository) RevokeExcess(ctx context.Context, userID string, keep int, now time.Time) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now.UTC()).
		Order("created_at DESC").Order("id DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list sessions for cap: %w", err)
	}
	if len(ids) <= keep {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id IN ? AND revoked_at IS NULL", ids[keep:]).
		Update("revoked_at", now.UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("revoke excess sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RevokeAllForUser revokes every active session of a user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now.UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteStale removes rows that expired or were revoked more than
// retention ago.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.UTC().Add(-retention)
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
		Delete(&domain.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
