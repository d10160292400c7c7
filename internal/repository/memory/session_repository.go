package memory

import (
	"errors"
	"time"

	"ai-learning-assistant-be/pkg/assistant/session"

	"github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionRepository keeps live session controllers in memory. Entries expire
// after ttl without access; nothing outlives the process.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (r *SessionRepository) Save(ctrl *session.Controller) {
	r.cache.Set(ctrl.ID(), ctrl, cache.DefaultExpiration)
}

// Get returns the controller and extends its lifetime. Replace only writes
// while the key exists, so a concurrent Delete is never undone.
func (r *SessionRepository) Get(sessionID string) (*session.Controller, error) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	ctrl := x.(*session.Controller)
	if err := r.cache.Replace(sessionID, ctrl, cache.DefaultExpiration); err != nil {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

func (r *SessionRepository) Delete(sessionID string) error {
	if _, found := r.cache.Get(sessionID); !found {
		return ErrSessionNotFound
	}
	r.cache.Delete(sessionID)
	return nil
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// OnEvicted registers a callback for expired or deleted sessions.
func (r *SessionRepository) OnEvicted(fn func(sessionID string)) {
	r.cache.OnEvicted(func(key string, _ interface{}) {
		fn(key)
	})
}
