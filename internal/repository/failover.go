package repository

import (
	"context"
	"sync/atomic"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary until it errors, then from
// fallback, probing primary again once recoveryInterval has passed.
type FailoverStateRepository struct {
	primary  domain.StateRepository
	fallback domain.StateRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool
	downAt   atomic.Int64
	now      func() time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should try primary.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.downAt.Load())) > recoveryInterval
}

func (r *FailoverStateRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary state repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	}
	r.downAt.Store(r.now().UnixNano())
}

func (r *FailoverStateRepository) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	if r.usePrimary() {
		state, err := r.primary.GetState(ctx, chatID)
		r.observe(err)
		if err == nil {
			return state, nil
		}
	}
	return r.fallback.GetState(ctx, chatID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.ChatState) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, state)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, chatID int64) error {
	if r.usePrimary() {
		err := r.primary.ClearState(ctx, chatID)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.ClearState(ctx, chatID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverStateRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r.usePrimary() {
		token, ok, err := r.primary.AcquireLock(ctx, key, ttl)
		r.observe(err)
		if err == nil {
			return token, ok, nil
		}
	}
	return r.fallback.AcquireLock(ctx, key, ttl)
}

// ReleaseLock releases on both sides; a token unknown to one side is a no-op there.
func (r *FailoverStateRepository) ReleaseLock(ctx context.Context, key, token string) error {
	if r.usePrimary() {
		err := r.primary.ReleaseLock(ctx, key, token)
		r.observe(err)
	}
	return r.fallback.ReleaseLock(ctx, key, token)
}
