package document

import (
	"sync"
	"time"
)

// DocumentContext is the text a session's answers are grounded on.
// IsProcessed implies Text is non-empty.
type DocumentContext struct {
	Text        string    `json:"text"`
	IsProcessed bool      `json:"is_processed"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Store holds the single document of a session.
type Store struct {
	mu      sync.RWMutex
	current DocumentContext
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Submit replaces any prior context. The caller guarantees text is not blank.
func (s *Store) Submit(text string) DocumentContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = DocumentContext{
		Text:        text,
		IsProcessed: true,
		SubmittedAt: s.now(),
	}
	return s.current
}

// Current returns a copy of the processed document, if any.
func (s *Store) Current() (DocumentContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, s.current.IsProcessed
}
