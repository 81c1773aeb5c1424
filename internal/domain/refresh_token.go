package domain

import "time"

// RefreshToken stores one issued refresh credential.
//
// Only the salted adaptive hash of the token secret is persisted (TokenHash).
// LookupKey is a keyed fingerprint used to narrow the candidate set; it is
// never sufficient to accept a token on its own.
type RefreshToken struct {
	ID string `json:"id" gorm:"primaryKey;size:26"`

	UserID string `json:"user_id" gorm:"size:26;index;not null"`
	User   *User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	TokenHash string `json:"-" gorm:"not null"`
	LookupKey string `json:"-" gorm:"size:64;index;not null"`

	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`

	RotatedFromID *string `json:"rotated_from_id" gorm:"size:26;index"`
	UserAgent     *string `json:"user_agent"`
	IP            *string `json:"ip" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
