package auth

import (
	"context"
	"log/slog"
	"time"
)

type StaleTokenDeleter interface {
	DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// CleanupService reaps refresh records that can never be redeemed again.
type CleanupService struct {
	tokens StaleTokenDeleter
	logger *slog.Logger
	now    func() time.Time
}

func NewCleanupService(tokens StaleTokenDeleter, logger *slog.Logger) *CleanupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupService{tokens: tokens, logger: logger, now: time.Now}
}

// CleanupStaleSessions removes records that expired or were revoked more
// than retention ago. Recent ones are kept for rotation lineage.
func (c *CleanupService) CleanupStaleSessions(ctx context.Context, retention time.Duration) (int64, error) {
	startTime := time.Now()

	deleted, err := c.tokens.DeleteStale(ctx, c.now().UTC(), retention)
	if err != nil {
		c.logger.Error("refresh token cleanup failed", slog.String("error", err.Error()))
		return 0, err
	}

	c.logger.Info("refresh token cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Duration("retention", retention),
		slog.Duration("took", time.Since(startTime)),
	)
	return deleted, nil
}
