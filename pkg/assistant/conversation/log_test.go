package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendPreservesOrder(t *testing.T) {
	log := NewLog()
	now := time.Now()

	first := NewTurn(RoleModel, "hello", now)
	second := NewTurn(RoleUser, "question", now)
	third := NewTurn(RoleModel, "answer", now)
	log.Append(first)
	log.Append(second)
	log.Append(third)

	turns := log.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, []Turn{first, second, third}, turns)
	assert.Equal(t, 3, log.Len())
}

func TestTurnsReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(NewTurn(RoleUser, "original", time.Now()))

	turns := log.Turns()
	turns[0].Content = "changed"

	assert.Equal(t, "original", log.Turns()[0].Content)
}

func TestTurnIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		turn := NewTurn(RoleUser, "same", time.Now())
		assert.False(t, seen[turn.ID], "duplicate id %s", turn.ID)
		seen[turn.ID] = true
	}
}
