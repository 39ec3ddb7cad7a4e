package repository

import (
	"context"
	"sync"
	"time"

	"staybook/internal/models"

	"github.com/google/uuid"
)

// MemoryStateRepository is the single-process stand-in for Redis.
type MemoryStateRepository struct {
	states sync.Map

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
	locks      map[string]lockEntry
	ttl        time.Duration
	now        func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

type stateEntry struct {
	state     *models.ChatState
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		rateLimits: make(map[string]*rateLimitEntry),
		locks:      make(map[string]lockEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, chatID int64) (*models.ChatState, error) {
	val, ok := r.states.Load(chatID)
	if !ok {
		return nil, nil
	}
	entry := val.(stateEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.states.Delete(chatID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *models.ChatState) error {
	r.states.Store(state.ChatID, stateEntry{state: state, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemoryStateRepository) ClearState(_ context.Context, chatID int64) error {
	r.states.Delete(chatID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if held, ok := r.locks[key]; ok && now.Before(held.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	r.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (r *MemoryStateRepository) ReleaseLock(_ context.Context, key, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.locks[key]; ok && held.token == token {
		delete(r.locks, key)
	}
	return nil
}
