package auth

import "time"

type SignupRequest struct {
	Email    string `json:"email" validate:"required,emailish"`
	Username string `json:"username" validate:"required,min=3,max=64,excludes=@"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// RequestMeta is stored on refresh records for session listings and audit.
type RequestMeta struct {
	UserAgent string
	IP        string
}

type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Session struct {
	User             UserView
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type RefreshResult struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}
