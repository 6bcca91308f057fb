package session

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(i int) (Message, Message) {
	return Message{Role: RoleUser, Content: fmt.Sprintf("q%d", i)},
		Message{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)}
}

func TestWindow_NeverExceedsLimit(t *testing.T) {
	w := NewWindow(10)
	for i := 0; i < 25; i++ {
		w.AddExchange(exchange(i))
		assert.LessOrEqual(t, w.Len(), 10, "after exchange %d", i)
	}
	assert.Equal(t, 10, w.Len())
}

func TestWindow_EvictsOldestPairFirst(t *testing.T) {
	w := NewWindow(10)
	for i := 0; i < 11; i++ {
		w.AddExchange(exchange(i))
	}

	turns := w.Turns()
	require.Len(t, turns, 10)
	assert.Equal(t, "q6", turns[0].Content)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "a10", turns[9].Content)

	var want []string
	for i := 6; i <= 10; i++ {
		want = append(want, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	var got []string
	for _, m := range turns {
		got = append(got, m.Content)
	}
	assert.Equal(t, want, got)
	for _, m := range turns {
		assert.NotEqual(t, "q0", m.Content)
		assert.NotEqual(t, "a0", m.Content)
	}
}

func TestWindow_OddLimitKeepsPairs(t *testing.T) {
	w := NewWindow(5)
	for i := 0; i < 4; i++ {
		w.AddExchange(exchange(i))
	}
	turns := w.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "q2", turns[0].Content)
}

func TestWindow_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, NewWindow(0).Limit())
	assert.Equal(t, DefaultHistoryLimit, NewWindow(-3).Limit())
}

func TestWindow_TurnsIsACopy(t *testing.T) {
	w := NewWindow(4)
	w.AddExchange(exchange(1))
	turns := w.Turns()
	turns[0].Content = "mutated"
	assert.Equal(t, "q1", w.Turns()[0].Content)
}

func TestNew(t *testing.T) {
	s := New(10)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Empty(t, s.Messages())
	assert.Equal(t, 10, s.History.Limit())

	s.Append(Message{Role: RoleUser, Content: "hi"})
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	msgs[0].Content = "changed"
	assert.Equal(t, "hi", s.Transcript[0].Content)
}
