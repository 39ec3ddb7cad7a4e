package bot

import (
	"context"

	"github.com/rs/zerolog"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-chat message quota. Quota backend errors let the
// message through.
func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.state == nil || b.cfg.RateLimitMessages <= 0 {
		return true
	}
	allowed, err := b.state.CheckRateLimit(ctx, chatID, b.cfg.RateLimitMessages, b.cfg.RateLimitWindow)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		zerolog.Ctx(ctx).Warn().Int64("chat_id", chatID).Msg("Rate limit exceeded")
	}
	return allowed
}
