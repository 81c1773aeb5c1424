package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrAlreadyRevoked = errors.New("refresh token already revoked")
)

// UniqueViolationError names the column whose unique index rejected a write.
type UniqueViolationError struct {
	Field string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation on %s", e.Field)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrDuplicate
}

var uniqueIndexes = map[string]string{
	"uq_users_username":            "username",
	"uq_local_credentials_email":   "email",
	"uq_local_credentials_user_id": "user_id",
}

var sqliteColumns = map[string]string{
	"users.username":            "username",
	"local_credentials.email":   "email",
	"local_credentials.user_id": "user_id",
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if field, ok := uniqueIndexes[pgErr.ConstraintName]; ok {
			return &UniqueViolationError{Field: field}
		}
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}

	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		cols := strings.TrimSpace(msg[i+len("UNIQUE constraint failed: "):])
		if j := strings.IndexAny(cols, " ,)("); j >= 0 {
			cols = cols[:j]
		}
		if field, ok := sqliteColumns[cols]; ok {
			return &UniqueViolationError{Field: field}
		}
		return fmt.Errorf("%w: %s", ErrDuplicate, cols)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
