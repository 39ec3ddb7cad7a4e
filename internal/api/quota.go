package api

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/config"

	"github.com/rs/zerolog"
)

// QuotaStore counts requests per key across processes.
type QuotaStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// UserQuota caps write requests per caller. Store errors let the request through.
type UserQuota struct {
	store  QuotaStore
	limit  int
	window time.Duration
	logger *zerolog.Logger
}

func NewUserQuota(store QuotaStore, cfg config.APIUserQuotaConfig, logger *zerolog.Logger) *UserQuota {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UserQuota{store: store, limit: cfg.Limit, window: cfg.Window, logger: logger}
}

func (q *UserQuota) Allow(ctx context.Context, userID int64) bool {
	if q == nil || q.store == nil || q.limit <= 0 {
		return true
	}
	ok, err := q.store.CheckRateLimit(ctx, fmt.Sprintf("api:user:%d", userID), q.limit, q.window)
	if err != nil {
		q.logger.Warn().Err(err).Int64("user_id", userID).Msg("user quota check failed, allowing request")
		return true
	}
	return ok
}
