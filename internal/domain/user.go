package domain

import "time"

// User is the identity anchor. Username is stored lowercase.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	Username  string    `json:"username" gorm:"size:64;not null;uniqueIndex:uq_users_username"`
	CreatedAt time.Time `json:"created_at"`
}

// LocalCredential is the one-to-one password login for a User.
// Email is stored lowercase.
type LocalCredential struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"size:26;not null;uniqueIndex:uq_local_credentials_user_id"`
	User         *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Email        string    `json:"email" gorm:"size:320;not null;uniqueIndex:uq_local_credentials_email"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
