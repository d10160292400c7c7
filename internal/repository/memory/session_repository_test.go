package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/assistant/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAnswerer struct{}

func (nopAnswerer) Answer(context.Context, string, string) (string, error) { return "", nil }

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Minute)
	ctrl := session.NewController("abc", nopAnswerer{}, logger.NewNopLogger())

	repo.Save(ctrl)
	assert.Equal(t, 1, repo.Count())

	got, err := repo.Get("abc")
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.Delete("abc"))
	assert.ErrorIs(t, repo.Delete("abc"), ErrSessionNotFound)
	assert.Equal(t, 0, repo.Count())
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(20*time.Millisecond, 5*time.Millisecond)
	evicted := make(chan string, 1)
	repo.OnEvicted(func(id string) { evicted <- id })

	repo.Save(session.NewController("short-lived", nopAnswerer{}, logger.NewNopLogger()))

	select {
	case id := <-evicted:
		assert.Equal(t, "short-lived", id)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted")
	}

	_, err := repo.Get("short-lived")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepositoryGetNeverRevivesDeleted(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Minute)

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("session-%d", i)
		repo.Save(session.NewController(id, nopAnswerer{}, logger.NewNopLogger()))

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = repo.Get(id)
			}()
		}
		deleted := repo.Delete(id)
		wg.Wait()

		require.NoError(t, deleted)
		_, err := repo.Get(id)
		require.ErrorIs(t, err, ErrSessionNotFound, "session %s came back after delete", id)
	}
	assert.Equal(t, 0, repo.Count())
}

func TestSessionRepositoryGetAfterDelete(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Minute)
	repo.Save(session.NewController("gone", nopAnswerer{}, logger.NewNopLogger()))
	require.NoError(t, repo.Delete("gone"))

	got, err := repo.Get("gone")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, repo.Count())
}
