package repository

import (
	"context"
	"fmt"
	"strings"

	"photoshare/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// CreateWithCredential inserts the user and its local credential in one
// transaction. Neither row exists if either insert fails.
func (r *UserRepository) CreateWithCredential(ctx context.Context, u *domain.User, cred *domain.LocalCredential) error {
	u.Username = normalize(u.Username)
	cred.Email = normalize(cred.Email)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(u).Error; err != nil {
			return err
		}
		cred.UserID = u.ID
		return tx.Omit(clause.Associations).Create(cred).Error
	})
	if err != nil {
		return classify(err)
	}
	cred.User = u
	return nil
}

func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	u.Username = normalize(u.Username)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (r *UserRepository) CreateCredential(ctx context.Context, cred *domain.LocalCredential) error {
	cred.Email = normalize(cred.Email)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(cred).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", normalize(username)).First(&u).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ?", normalize(username)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count users by username: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.LocalCredential{}).
		Where("email = ?", normalize(email)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count credentials by email: %w", err)
	}
	return n > 0, nil
}

// GetCredentialByEmail returns the credential with its User loaded.
func (r *UserRepository) GetCredentialByEmail(ctx context.Context, email string) (*domain.LocalCredential, error) {
	var cred domain.LocalCredential
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("email = ?", normalize(email)).
		First(&cred).Error
	if err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}

// GetCredentialByUsername resolves the credential through the owning user.
func (r *UserRepository) GetCredentialByUsername(ctx context.Context, username string) (*domain.LocalCredential, error) {
	var cred domain.LocalCredential
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = local_credentials.user_id").
		Where("users.username = ?", normalize(username)).
		First(&cred).Error
	if err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}

func (r *UserRepository) GetCredentialByUserID(ctx context.Context, userID string) (*domain.LocalCredential, error) {
	var cred domain.LocalCredential
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&cred).Error
	if err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}
